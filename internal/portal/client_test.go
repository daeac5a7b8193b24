package portal_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/voterlookup/epic-extractor/internal/portal"
)

const userAgent = "Mozilla/5.0 (test)"

var _ = Describe("portal client", func() {
	var (
		ctx    context.Context
		mux    *http.ServeMux
		server *httptest.Server
		client *portal.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		mux = http.NewServeMux()
		server = httptest.NewServer(mux)

		var err error
		client, err = portal.NewClient(portal.Config{
			CaptchaURL:     server.URL + "/captcha",
			SearchURL:      server.URL + "/search",
			UserAgent:      userAgent,
			CaptchaTimeout: time.Second,
			SearchTimeout:  time.Second,
			HealthTimeout:  time.Second,
		})
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewClient", func() {
		It("rejects an unparsable proxy url", func() {
			_, err := portal.NewClient(portal.Config{ProxyURL: "http://[::1"})
			Expect(err).NotTo(BeNil())
		})

		It("accepts a proxy with credentials", func() {
			c, err := portal.NewClient(portal.Config{ProxyURL: "http://proxy.local:3128", ProxyUsername: "user", ProxyPassword: "pass"})
			Expect(err).To(BeNil())
			Expect(c).NotTo(BeNil())
		})
	})

	Describe("FetchChallenge", func() {
		It("decodes the image and id", func() {
			mux.HandleFunc("/captcha", func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodGet))
				Expect(r.Header.Get("User-Agent")).To(Equal(userAgent))
				_ = json.NewEncoder(w).Encode(map[string]string{
					"captcha": base64.StdEncoding.EncodeToString([]byte("png-bytes")),
					"id":      "challenge-1",
				})
			})

			challenge, err := client.FetchChallenge(ctx)
			Expect(err).To(BeNil())
			Expect(challenge.ID).To(Equal("challenge-1"))
			Expect(challenge.Image).To(Equal([]byte("png-bytes")))
		})

		It("returns a status error on non-200", func() {
			mux.HandleFunc("/captcha", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			})

			_, err := client.FetchChallenge(ctx)
			var statusErr *portal.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})

		It("flags a challenge without id", func() {
			mux.HandleFunc("/captcha", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"captcha": "aGVsbG8="}`))
			})

			_, err := client.FetchChallenge(ctx)
			Expect(errors.Is(err, portal.ErrMalformedChallenge)).To(BeTrue())
		})

		It("flags an image that is not base64", func() {
			mux.HandleFunc("/captcha", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"captcha": "***", "id": "x"}`))
			})

			_, err := client.FetchChallenge(ctx)
			Expect(errors.Is(err, portal.ErrMalformedChallenge)).To(BeTrue())
		})

		It("times out a slow portal", func() {
			mux.HandleFunc("/captcha", func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(3 * time.Second):
				}
			})

			start := time.Now()
			_, err := client.FetchChallenge(ctx)
			Expect(err).NotTo(BeNil())
			Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
		})
	})

	Describe("Submit", func() {
		lookup := portal.Lookup{Guess: "ab12cd", ChallengeID: "challenge-1", Identifier: "ABC1234567", RegionCode: "S08"}

		It("sends the lookup payload", func() {
			mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
				Expect(r.Header.Get("User-Agent")).To(Equal(userAgent))

				var body map[string]string
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				Expect(body).To(Equal(map[string]string{
					"captchaData": "ab12cd",
					"captchaId":   "challenge-1",
					"epicNumber":  "ABC1234567",
					"isPortal":    "true",
					"securityKey": "na",
					"stateCd":     "S08",
				}))

				_, _ = w.Write([]byte(`[{"content": {"epicNumber": "ABC1234567", "fullName": "Asha Devi"}}]`))
			})

			outcome := client.Submit(ctx, lookup)
			Expect(outcome.Kind).To(Equal(portal.OutcomeSuccess))
			Expect(outcome.Succeeded()).To(BeTrue())
			Expect(outcome.Record).To(HaveKeyWithValue("fullName", "Asha Devi"))
		})

		It("reports a wrong guess on 400", func() {
			mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			})

			outcome := client.Submit(ctx, lookup)
			Expect(outcome.Kind).To(Equal(portal.OutcomeWrongGuess))
			Expect(outcome.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("reports a transport error when the portal is gone", func() {
			server.Close()

			outcome := client.Submit(ctx, lookup)
			Expect(outcome.Kind).To(Equal(portal.OutcomeTransportError))
			Expect(outcome.Err).NotTo(BeNil())
		})
	})

	Describe("Ping", func() {
		It("returns the status code", func() {
			mux.HandleFunc("/captcha", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			})

			code, err := client.Ping(ctx)
			Expect(err).To(BeNil())
			Expect(code).To(Equal(http.StatusTooManyRequests))
		})
	})
})
