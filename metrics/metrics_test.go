package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"eduplatform-backend/metrics"
)

var _ = Describe("Metrics", func() {
	Specify("requests are labelled by route template", func() {
		r := mux.NewRouter()
		r.Use(metrics.InstrumentHandler)
		r.HandleFunc("/schools/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		r.Handle("/metrics", metrics.Handler())

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/schools/abc", nil))
		metrics.RecordTransaction("tier", "school")

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body, err := io.ReadAll(rec.Body)
		Expect(err).To(BeNil())

		Expect(string(body)).To(ContainSubstring(`route="/schools/{id}",status="418"`))
		Expect(string(body)).To(ContainSubstring(`eduplatform_billing_transactions_total{target="school",type="tier"} 1`))
	})
})
