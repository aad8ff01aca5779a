package extraction

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockGenerator is a mock implementation of Generator
type mockGenerator struct {
	mu       sync.Mutex
	output   string
	err      error
	panicVal any
	prompts  []string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.panicVal != nil {
		panic(m.panicVal)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

var _ = Describe("Extractor", func() {
	var (
		generator *mockGenerator
		cfg       Config
		extractor *Extractor
		ctx       context.Context
	)

	BeforeEach(func() {
		generator = &mockGenerator{}
		cfg = Config{}
		ctx = context.Background()
	})

	JustBeforeEach(func() {
		extractor = NewExtractor(generator, cfg)
	})

	Describe("ExtractReceipt", func() {
		var result Result[ReceiptData]

		JustBeforeEach(func() {
			result = extractor.ExtractReceipt(ctx, "Chicken Soup x2 - 8.00 each = 16.00")
		})

		When("the model returns JSON wrapped in prose", func() {
			BeforeEach(func() {
				generator.output = `Here you go: {"receiptDate": "2024-01-15", "totalAmount": 52.92, "items": [{"itemName": "Chicken Soup", "recipeKey": "Supa Pui ", "quantity": 2, "unitPrice": 8.0, "totalPrice": 16.0}]}`
			})

			It("returns the normalized receipt", func() {
				Expect(result.OK()).To(BeTrue())
				Expect(result.Data.Items).To(HaveLen(1))
				Expect(result.Data.Items[0].RecipeKey).To(Equal("supa pui"))
				Expect(result.Data.Items[0].Quantity).To(Equal(2.0))
			})

			It("sends the receipt prompt with the raw text", func() {
				Expect(generator.prompts).To(HaveLen(1))
				Expect(generator.prompts[0]).To(ContainSubstring("Extract ONLY SOLD FOOD ITEMS"))
				Expect(generator.prompts[0]).To(HaveSuffix("Chicken Soup x2 - 8.00 each = 16.00"))
			})
		})

		When("the generator fails", func() {
			BeforeEach(func() {
				generator.err = errors.New("connection refused")
			})

			It("returns the empty default", func() {
				Expect(result.Data).To(Equal(EmptyReceipt()))
			})

			It("reports an invocation failure", func() {
				Expect(result.Reason).To(Equal(ReasonInvocationFailed))
				Expect(result.Err).To(MatchError(ContainSubstring("connection refused")))
			})
		})

		When("the generator panics", func() {
			BeforeEach(func() {
				generator.panicVal = "boom"
			})

			It("recovers and reports an invocation failure", func() {
				Expect(result.Reason).To(Equal(ReasonInvocationFailed))
				Expect(result.Data).To(Equal(EmptyReceipt()))
			})
		})

		When("the context is cancelled", func() {
			BeforeEach(func() {
				var cancel context.CancelFunc
				ctx, cancel = context.WithCancel(context.Background())
				cancel()
				generator.output = `{"items": []}`
			})

			It("reports an invocation failure", func() {
				Expect(result.Reason).To(Equal(ReasonInvocationFailed))
				Expect(result.Err).To(MatchError(context.Canceled))
			})
		})

		When("the model returns garbage", func() {
			BeforeEach(func() {
				generator.output = "I could not process this request."
			})

			It("returns the empty default with a reason", func() {
				Expect(result.Data.Items).To(BeEmpty())
				Expect(result.Reason).To(Equal(ReasonNoCandidate))
			})
		})

		When("configured with the balanced finder", func() {
			BeforeEach(func() {
				cfg.Finder = BalancedCandidate
				generator.output = `Sure { here: {"items": [{"itemName": "Soup", "recipeKey": "supa", "quantity": 1}]}`
			})

			It("recovers the object", func() {
				Expect(result.OK()).To(BeTrue())
				Expect(result.Data.Items).To(HaveLen(1))
			})
		})

		When("configured with receipt hints", func() {
			BeforeEach(func() {
				cfg.ReceiptHints = Hints{KnownKeys: []string{"burger", "supa pui"}}
				generator.output = `{"items": []}`
			})

			It("passes them into the prompt", func() {
				Expect(generator.prompts[0]).To(ContainSubstring("recipeKey MUST be one of: burger, supa pui"))
			})
		})
	})

	Describe("ExtractInvoice", func() {
		var result Result[InvoiceData]

		JustBeforeEach(func() {
			result = extractor.ExtractInvoice(ctx, "Faina alba 000 - 10 kg")
		})

		When("the model returns a valid invoice", func() {
			BeforeEach(func() {
				generator.output = "```json\n" + `{"supplierName": "Fresh Foods Co.", "items": [{"itemName": "Faina alba 000", "ingredientKey": "Faina", "quantity": 10, "unit": "kg"}]}` + "\n```"
			})

			It("returns the normalized invoice", func() {
				Expect(result.OK()).To(BeTrue())
				Expect(result.Data.SupplierName).To(HaveValue(Equal("Fresh Foods Co.")))
				Expect(result.Data.Items[0].IngredientKey).To(Equal("faina"))
			})

			It("sends the invoice prompt", func() {
				Expect(generator.prompts[0]).To(ContainSubstring("Rules for ingredientKey"))
			})
		})

		When("the generator fails", func() {
			BeforeEach(func() {
				generator.err = errors.New("quota exceeded")
			})

			It("returns the empty default", func() {
				Expect(result.Reason).To(Equal(ReasonInvocationFailed))
				Expect(result.Data).To(Equal(EmptyInvoice()))
			})
		})

		When("the schema is violated", func() {
			BeforeEach(func() {
				generator.output = `{"items": [{"itemName": "Faina", "ingredientKey": "faina", "quantity": -1}]}`
			})

			It("returns the empty default", func() {
				Expect(result.Reason).To(Equal(ReasonSchemaViolation))
				Expect(result.Data).To(Equal(EmptyInvoice()))
			})
		})
	})

	When("no generator is configured", func() {
		It("reports an invocation failure", func() {
			r := NewExtractor(nil, Config{}).ExtractInvoice(context.Background(), "text")
			Expect(r.Reason).To(Equal(ReasonInvocationFailed))
			Expect(r.Data).To(Equal(EmptyInvoice()))
		})
	})

	When("called concurrently", func() {
		BeforeEach(func() {
			generator.output = `{"items": [{"itemName": "Soup", "recipeKey": "Supa", "quantity": 1}]}`
		})

		It("returns independent results", func() {
			var wg sync.WaitGroup
			results := make([]Result[ReceiptData], 8)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = extractor.ExtractReceipt(ctx, "text")
				}(i)
			}
			wg.Wait()

			for _, r := range results {
				Expect(r.OK()).To(BeTrue())
				Expect(r.Data.Items[0].RecipeKey).To(Equal("supa"))
			}
			Expect(generator.prompts).To(HaveLen(8))
		})
	})
})
