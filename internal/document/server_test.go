package document

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/stockx/extractor/internal/extraction"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		extractor   *mockExtractor
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = newMockExtractor()
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		service := NewServiceWithDeps(db, storage, &mockReader{}, extractor, nil, &mockIDGenerator{id: "doc-1"}, &mockTimeSource{})
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions} {
			ghttpServer.RouteToHandler(method, regexp.MustCompile(`.*`), server.ServeHTTP)
		}
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	upload := func(path, filename, contentType string, data []byte) *http.Response {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := writer.CreatePart(h)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghttpServer.URL()+path, writer.FormDataContentType(), &body)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, v)).To(Succeed())
	}

	Describe("GET /healthz", func() {
		It("should return ok", func() {
			resp, err := http.Get(ghttpServer.URL() + "/healthz")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})
	})

	Describe("POST /api/{kind}", func() {
		When("uploading an invoice", func() {
			It("should return the completed record", func() {
				resp := upload("/api/invoices", "factura.txt", "text/plain", []byte("FAINA 10 KG"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var record Record
				decode(resp, &record)
				Expect(record.ID).To(Equal("doc-1"))
				Expect(record.Kind).To(Equal(KindInvoice))
				Expect(record.Status).To(Equal(StatusCompleted))
				Expect(record.Invoice.Items).To(HaveLen(2))
			})
		})

		When("the upload has no content type", func() {
			It("should guess it from the extension", func() {
				resp := upload("/api/receipts", "bon.txt", "", []byte("Burger 2 x 35"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				resp.Body.Close()
				Expect(db.records["receipts/doc-1"].ContentType).To(Equal("text/plain"))
			})
		})

		When("extraction fails", func() {
			BeforeEach(func() {
				extractor.receipt = extraction.Result[extraction.ReceiptData]{
					Data:   extraction.EmptyReceipt(),
					Reason: extraction.ReasonMalformedJSON,
				}
			})

			It("should return 422 with the failed record", func() {
				resp := upload("/api/receipts", "bon.txt", "text/plain", []byte("???"))
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

				var record Record
				decode(resp, &record)
				Expect(record.Status).To(Equal(StatusFailed))
				Expect(record.Reason).To(Equal(extraction.ReasonMalformedJSON))
				Expect(record.Receipt.Items).To(BeEmpty())
			})
		})

		When("no file is sent", func() {
			It("should return 400", func() {
				var body bytes.Buffer
				writer := multipart.NewWriter(&body)
				Expect(writer.WriteField("note", "x")).To(Succeed())
				Expect(writer.Close()).To(Succeed())

				resp, err := http.Post(ghttpServer.URL()+"/api/invoices", writer.FormDataContentType(), &body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the kind is unknown", func() {
			It("should return 404", func() {
				resp := upload("/api/orders", "a.txt", "text/plain", []byte("x"))
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("POST /api/extract/{kind}", func() {
		It("should extract text without storing it", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/extract/receipt", "application/json",
				strings.NewReader(`{"text": "Burger Classic 2 x 35.00"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var record Record
			decode(resp, &record)
			Expect(record.Receipt.Items[0].RecipeKey).To(Equal("burger"))
			Expect(extractor.texts).To(ConsistOf("Burger Classic 2 x 35.00"))
			Expect(db.records).To(BeEmpty())
		})

		It("should reject an empty text", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/extract/invoices", "application/json", strings.NewReader(`{"text": "  "}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})

		It("should reject a malformed body", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/extract/invoices", "application/json", strings.NewReader(`{`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})
	})

	Describe("GET /api/{kind}", func() {
		When("records exist", func() {
			BeforeEach(func() {
				db.records["invoices/i1"] = &Record{ID: "i1", Kind: KindInvoice}
				db.records["invoices/i2"] = &Record{ID: "i2", Kind: KindInvoice}
				db.records["receipts/r1"] = &Record{ID: "r1", Kind: KindReceipt}
			})

			It("should return the records of that kind", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/invoices")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var records []*Record
				decode(resp, &records)
				Expect(records).To(HaveLen(2))
			})
		})

		When("no records exist", func() {
			It("should return an empty array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
			})
		})
	})

	Describe("GET /api/{kind}/{id}", func() {
		BeforeEach(func() {
			db.records["receipts/r1"] = &Record{ID: "r1", Kind: KindReceipt, Status: StatusCompleted}
		})

		It("should return the record", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/receipts/r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var record Record
			decode(resp, &record)
			Expect(record.ID).To(Equal("r1"))
		})

		It("should return 404 for a missing record", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/receipts/missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})

		It("should return 404 when looking in the wrong kind", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/invoices/r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})
	})

	Describe("GET /api/{kind}/{id}/file", func() {
		BeforeEach(func() {
			db.records["invoices/i1"] = &Record{ID: "i1", Kind: KindInvoice, Filename: "i1_f.pdf", ContentType: "application/pdf"}
			storage.files["i1_f.pdf"] = []byte("%PDF-1.4")
		})

		It("should return the original file", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/invoices/i1/file")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("%PDF-1.4"))
		})
	})

	Describe("DELETE /api/{kind}/{id}", func() {
		BeforeEach(func() {
			db.records["receipts/r1"] = &Record{ID: "r1", Kind: KindReceipt, Filename: "r1_bon.txt"}
		})

		It("should delete the record", func() {
			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/receipts/r1", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			resp.Body.Close()
			Expect(db.records).To(BeEmpty())
		})

		It("should return 404 for a missing record", func() {
			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/receipts/nope", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			req, err := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/api/invoices", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			resp.Body.Close()
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("should reject requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/invoices")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			resp.Body.Close()
		})

		It("should reject wrong credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/invoices", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("admin", "wrong")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			resp.Body.Close()
		})

		It("should accept valid credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/invoices", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("admin", "secret")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("should leave the health check open", func() {
			resp, err := http.Get(ghttpServer.URL() + "/healthz")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})
	})
})
