package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/dryrun"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

// Server is the HTTP surface the permissions controller exposes for
// platform webhook deliveries: POST / for the event envelope, GET
// /static/* for images referenced from alert blocks.
type Server struct {
	Secret          []byte
	SelfLogin       string
	ImportantBranch string

	ConfigOrg  string
	ConfigRepo string
	ConfigPath string

	Provider                *platform.CredentialProvider
	Cache                   *platform.Cache
	Sink                    alert.Sink
	TrustedReleasers        map[string]bool
	TrustedReleaserPolicies []TrustedReleaserPolicy

	Harness     *dryrun.Harness
	DryRunQueue *dryrun.Queue
	StaticDir   string

	// LoadConfig reloads and re-validates the current permissions
	// document; called fresh on every enforcement delivery so a stale
	// in-memory copy never drives a mutation.
	LoadConfig func(ctx context.Context) (*policy.PermissionsConfig, error)

	Logger *zap.Logger

	router *mux.Router
}

// NewServer wires the gorilla/mux router, grounded on
// presmihaylov-claudecontrol/ccbackend's cmd/main.go HTTP setup.
func NewServer(s *Server) *Server {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleWebhook).Methods(http.MethodPost)
	if s.StaticDir != "" {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(s.StaticDir))))
	}
	s.router = r
	return s
}

// verifyPlatformSignature checks the X-Hub-Signature-256 header against
// an HMAC-SHA256 of the raw request body, adapted from
// handlers/slackevents.go's verifySlackSignature: the platform's
// webhook signature scheme has no timestamp component, so the base
// string here is the body alone rather than "v0:timestamp:body".
func verifyPlatformSignature(secret, signatureHeader string, body []byte) error {
	const prefix = "sha256="
	if signatureHeader == "" {
		return errors.New("missing X-Hub-Signature-256 header")
	}
	if len(signatureHeader) <= len(prefix) || signatureHeader[:len(prefix)] != prefix {
		return errors.New("malformed signature header")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := prefix + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return errors.New("signature verification failed")
	}
	return nil
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "error reading body", http.StatusBadRequest)
		return
	}

	if err := verifyPlatformSignature(string(s.Secret), r.Header.Get("X-Hub-Signature-256"), body); err != nil {
		s.Logger.Warn("webhook signature rejected", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventName := github.WebHookType(r)
	deliveryID := r.Header.Get("X-GitHub-Delivery")
	s.Logger.Info("webhook received", zap.String("event", eventName), zap.String("delivery_id", deliveryID))

	event, err := github.ParseWebHook(eventName, body)
	if err != nil {
		s.Logger.Info("webhook event unhandled", zap.String("event", eventName), zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	class := Classify(eventName, event, s.SelfLogin, s.ImportantBranch)
	w.WriteHeader(http.StatusOK)

	go s.dispatch(context.Background(), eventName, event, class, string(body))
}

func (s *Server) dispatch(ctx context.Context, eventName string, event interface{}, class Classification, rawPayload string) {
	if class.Suppress {
		return
	}

	switch class.Decision {
	case DecisionIgnore:
		return
	case DecisionEnforce:
		s.handleEnforce(ctx, event, rawPayload)
	case DecisionDryRun:
		s.handleDryRun(event)
	case DecisionAlert:
		if e, ok := event.(*github.ReleaseEvent); ok {
			class = s.applyReleasePolicy(ctx, e, class)
			if class.Suppress {
				return
			}
		}
		s.alert(ctx, class, rawPayload)
	}
}

// applyReleasePolicy runs the §4.7.2 trusted-releaser policy over a
// release event, acquiring a read-only platform client to look up the
// policy's companion release. On any client or evaluation error it
// logs and falls back to the unevaluated classification rather than
// alerting blind or swallowing the event.
func (s *Server) applyReleasePolicy(ctx context.Context, e *github.ReleaseEvent, class Classification) Classification {
	org := e.GetRepo().GetOwner().GetLogin()
	repo := e.GetRepo().GetName()
	action := e.GetAction()
	sender := e.GetSender().GetLogin()
	tagName := e.GetRelease().GetTagName()

	client, err := s.Cache.ClientFor(ctx, s.Provider, org, true)
	if err != nil {
		s.Logger.Error("release policy client acquisition failed", zap.Error(err), zap.String("org", org))
		return class
	}

	drop, severity, err := EvaluateRelease(ctx, client, org, repo, action, sender, tagName, s.TrustedReleasers, s.TrustedReleaserPolicies)
	if err != nil {
		s.Logger.Error("release policy evaluation failed", zap.Error(err), zap.String("repo", repo))
		return class
	}

	class.Suppress = drop
	if !drop {
		class.Severity = severity
		class.Detail = fmt.Sprintf("%s/%s: %s released `%s` by %s", org, repo, action, tagName, sender)
	}
	return class
}

func (s *Server) alert(ctx context.Context, class Classification, rawPayload string) {
	msg := alert.NewMessageBuilder(class.Title, class.Severity).
		Body(class.Detail).
		WithMetadata(rawPayload).
		Build()
	if err := s.Sink.Send(ctx, msg); err != nil {
		s.Logger.Warn("alert delivery failed", zap.Error(err))
	}
}

func (s *Server) handleEnforce(ctx context.Context, event interface{}, rawPayload string) {
	e, ok := event.(*github.MemberEvent)
	if !ok {
		return
	}
	change := CollaboratorChange{
		OrgLogin: e.GetOrg().GetLogin(),
		RepoName: e.GetRepo().GetName(),
		Login:    e.GetMember().GetLogin(),
		Action:   e.GetAction(),
	}

	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		s.Logger.Error("enforcement config load failed", zap.Error(err))
		return
	}
	var orgCfg *policy.OrganizationConfig
	for i := range cfg.Organizations {
		if cfg.Organizations[i].Organization == change.OrgLogin {
			orgCfg = &cfg.Organizations[i]
			break
		}
	}
	if orgCfg == nil {
		return
	}

	client, err := s.Cache.ClientFor(ctx, s.Provider, change.OrgLogin, false)
	if err != nil {
		s.Logger.Error("enforcement client acquisition failed", zap.Error(err))
		return
	}

	outcome, detail, err := EnforceCollaboratorChange(ctx, client, orgCfg, change)
	if err != nil {
		s.Logger.Error("enforcement failed", zap.Error(err), zap.String("login", change.Login), zap.String("repo", change.RepoName))
		return
	}
	if outcome == alert.OutcomeAllow {
		return
	}

	msg := alert.NewMessageBuilder("Collaborator Change Enforced", alert.SeverityCritical).
		Field("repository", fmt.Sprintf("%s/%s", change.OrgLogin, change.RepoName)).
		Field("login", change.Login).
		WithOutcome(outcome).
		Body(detail).
		WithMetadata(rawPayload).
		Build()
	if err := s.Sink.Send(ctx, msg); err != nil {
		s.Logger.Warn("enforcement alert delivery failed", zap.Error(err))
	}
}

func (s *Server) handleDryRun(event interface{}) {
	e, ok := event.(*github.PullRequestEvent)
	if !ok || s.Harness == nil || s.DryRunQueue == nil {
		return
	}
	if e.GetRepo().GetOwner().GetLogin() != s.ConfigOrg || e.GetRepo().GetName() != s.ConfigRepo {
		return
	}

	pr := PullRequestRef{
		ConfigOrg:  s.ConfigOrg,
		ConfigRepo: s.ConfigRepo,
		Number:     e.GetPullRequest().GetNumber(),
		HeadSHA:    e.GetPullRequest().GetHead().GetSHA(),
	}
	s.DryRunQueue.Submit(func() {
		if err := s.Harness.Handle(context.Background(), pr); err != nil {
			s.Logger.Error("dry run failed", zap.Error(err), zap.Int("pr", pr.Number))
		}
	})
}

// Serve starts the HTTP listener and blocks until SIGINT/SIGTERM, then
// stops accepting new connections, gives in-flight requests up to five
// seconds to finish, drains the dry-run queue, and returns. Dispatch
// goroutines already started by handleWebhook are not waited for. Grounded on
// presmihaylov-claudecontrol/ccbackend/cmd/main.go:handleGracefulShutdown.
func (s *Server) Serve(addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.router}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.Logger.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if s.DryRunQueue != nil {
		s.DryRunQueue.Stop()
	}
	return nil
}
