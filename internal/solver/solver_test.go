package solver_test

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
	"github.com/voterlookup/epic-extractor/internal/config"
	"github.com/voterlookup/epic-extractor/internal/solver"
)

type fakeRunner struct {
	stdout []byte
	stderr []byte
	err    error

	gotStdin []byte
	gotName  string
	gotArgs  []string
}

func (f *fakeRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	f.gotStdin = stdin
	f.gotName = name
	f.gotArgs = args
	return f.stdout, f.stderr, f.err
}

var _ = Describe("solver", func() {
	Describe("ValidateGuess", func() {
		DescribeTable("checks the rune count",
			func(guess string, ok bool) {
				err := solver.ValidateGuess(guess, solver.ExpectedGuessLength)
				if ok {
					Expect(err).To(BeNil())
				} else {
					Expect(err).NotTo(BeNil())
				}
			},
			Entry("six characters", "ab12cd", true),
			Entry("five characters", "ab12c", false),
			Entry("seven characters", "ab12cde", false),
			Entry("empty", "", false),
			Entry("six multibyte runes", "éàüöäß", true),
		)
	})

	Describe("CommandSolver", func() {
		It("pipes the image and trims the output", func() {
			runner := &fakeRunner{stdout: []byte("  x7k9pq\n")}
			s := solver.NewCommandSolver("ddddocr-cli", []string{"--beta"}, time.Second).WithRunner(runner)

			guess, err := s.Solve(context.TODO(), []byte("image"))
			Expect(err).To(BeNil())
			Expect(guess).To(Equal("x7k9pq"))
			Expect(runner.gotStdin).To(Equal([]byte("image")))
			Expect(runner.gotName).To(Equal("ddddocr-cli"))
			Expect(runner.gotArgs).To(Equal([]string{"--beta"}))
		})

		It("wraps command failures", func() {
			boom := errors.New("exit status 1")
			runner := &fakeRunner{stderr: []byte("model missing"), err: boom}
			s := solver.NewCommandSolver("ddddocr-cli", nil, time.Second).WithRunner(runner)

			_, err := s.Solve(context.TODO(), []byte("image"))
			Expect(err).To(MatchError(ContainSubstring("running ddddocr-cli")))
			Expect(errors.Is(err, boom)).To(BeTrue())
		})
	})

	Describe("HTTPSolver", func() {
		It("posts the base64 image", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req map[string]string
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req["image"]).To(Equal(base64.StdEncoding.EncodeToString([]byte("image"))))
				_, _ = w.Write([]byte(`{"text": " ab12cd "}`))
			}))
			defer server.Close()

			guess, err := solver.NewHTTPSolver(server.URL, time.Second).Solve(context.TODO(), []byte("image"))
			Expect(err).To(BeNil())
			Expect(guess).To(Equal("ab12cd"))
		})

		It("fails on non-200", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer server.Close()

			_, err := solver.NewHTTPSolver(server.URL, time.Second).Solve(context.TODO(), []byte("image"))
			Expect(err).To(MatchError(ContainSubstring("status 500")))
		})
	})

	Describe("New", func() {
		It("builds the configured solver", func() {
			s, err := solver.New(&config.SolverConfig{Type: "http", Endpoint: "http://localhost:9898/ocr"})
			Expect(err).To(BeNil())
			Expect(s).To(BeAssignableToTypeOf(&solver.HTTPSolver{}))

			s, err = solver.New(&config.SolverConfig{Type: "command", Command: "ddddocr-cli"})
			Expect(err).To(BeNil())
			Expect(s).To(BeAssignableToTypeOf(&solver.CommandSolver{}))
		})

		It("rejects unknown types", func() {
			_, err := solver.New(&config.SolverConfig{Type: "magic"})
			Expect(err).NotTo(BeNil())
		})
	})
})
