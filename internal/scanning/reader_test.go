package scanning

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockTranscriber is a mock implementation of Transcriber
type mockTranscriber struct {
	text        string
	err         error
	calls       int
	contentType string
}

func (m *mockTranscriber) Transcribe(ctx context.Context, imageData []byte, contentType string) (string, error) {
	m.calls++
	m.contentType = contentType
	return m.text, m.err
}

var _ = Describe("DocumentReader", func() {
	var (
		transcriber *mockTranscriber
		reader      *DocumentReader
		ctx         context.Context
	)

	BeforeEach(func() {
		transcriber = &mockTranscriber{text: "Supa pui 1 x 18.00"}
		reader = NewDocumentReader(transcriber)
		ctx = context.Background()
	})

	Describe("ReadText", func() {
		It("should pass plain text through without transcribing", func() {
			text, err := reader.ReadText(ctx, []byte("FAINA 10 KG 3.50"), "text/plain; charset=utf-8")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("FAINA 10 KG 3.50"))
			Expect(transcriber.calls).To(BeZero())
		})

		It("should reject text that is not UTF-8", func() {
			_, err := reader.ReadText(ctx, []byte{0xff, 0xfe, 0xfd}, "text/plain")
			Expect(err).To(MatchError(ErrUnsupportedDocument))
		})

		It("should transcribe images", func() {
			text, err := reader.ReadText(ctx, testJPEG(), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Supa pui 1 x 18.00"))
			Expect(transcriber.calls).To(Equal(1))
			Expect(transcriber.contentType).To(Equal("image/jpeg"))
		})

		It("should sniff images uploaded without a content type", func() {
			_, err := reader.ReadText(ctx, testPNG(), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(transcriber.contentType).To(Equal("image/png"))
		})

		It("should wrap transcriber errors", func() {
			transcriber.err = errors.New("quota exceeded")
			_, err := reader.ReadText(ctx, testPNG(), "image/png")
			Expect(err).To(MatchError(ContainSubstring("transcribing document: quota exceeded")))
		})

		It("should report an empty transcription", func() {
			transcriber.text = "   \n"
			_, err := reader.ReadText(ctx, testPNG(), "image/png")
			Expect(err).To(MatchError(ErrEmptyDocument))
		})

		It("should reject unsupported types", func() {
			_, err := reader.ReadText(ctx, []byte("PK\x03\x04"), "application/zip")
			Expect(err).To(MatchError(ErrUnsupportedDocument))
		})

		When("no transcriber is configured", func() {
			BeforeEach(func() {
				reader = NewDocumentReader(nil)
			})

			It("should still read text", func() {
				text, err := reader.ReadText(ctx, []byte("Burger 2 x 35"), "text/plain")
				Expect(err).NotTo(HaveOccurred())
				Expect(text).To(Equal("Burger 2 x 35"))
			})

			It("should fail for images", func() {
				_, err := reader.ReadText(ctx, testPNG(), "image/png")
				Expect(err).To(MatchError(ErrNoTranscriber))
			})
		})
	})
})
