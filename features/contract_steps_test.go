package features

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"kir/internal/kir/api"
	"kir/internal/kir/application"
	"kir/internal/kir/infrastructure/memory"
)

type contractState struct {
	server   *httptest.Server
	sessions *application.SessionManager
	response *http.Response
	body     string
}

func InitializeScenario(sc *godog.ScenarioContext) {
	state := &contractState{}

	sc.Step(`^the service is running$`, state.theServiceIsRunning)
	sc.Step(`^I request the health endpoint$`, state.iRequestTheHealthEndpoint)
	sc.Step(`^I start a wizard as client "([^"]*)"$`, state.iStartAWizardAsClient)
	sc.Step(`^I post to "([^"]*)" as client "([^"]*)"$`, state.iPostToAsClient)
	sc.Step(`^the response status should be (\d+)$`, state.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, state.theResponseShouldContain)

	sc.After(func(ctx context.Context, scenario *godog.Scenario, err error) (context.Context, error) {
		if state.server != nil {
			state.server.Close()
		}
		if state.sessions != nil {
			state.sessions.Shutdown(ctx)
		}
		return ctx, nil
	})
}

func (s *contractState) theServiceIsRunning() error {
	gateway := application.NewRecordGateway(memory.NewDataStore(), time.Now)
	s.sessions = application.NewSessionManager(gateway, memory.NewDraftStorage(), nil,
		application.WithAutosaveDelay(time.Hour))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	api.NewHandler(s.sessions, gateway).RegisterRoutes(mux)
	s.server = httptest.NewServer(mux)
	return nil
}

func (s *contractState) do(method, path, clientID string) error {
	if s.server == nil {
		return fmt.Errorf("server not running")
	}
	req, err := http.NewRequest(method, s.server.URL+path, nil)
	if err != nil {
		return err
	}
	if clientID != "" {
		req.Header.Set(api.ClientIDHeader, clientID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	s.response = resp
	s.body = string(body)
	return nil
}

func (s *contractState) iRequestTheHealthEndpoint() error {
	return s.do(http.MethodGet, "/health", "")
}

func (s *contractState) iStartAWizardAsClient(clientID string) error {
	return s.do(http.MethodPost, "/wizard/start", clientID)
}

func (s *contractState) iPostToAsClient(path, clientID string) error {
	return s.do(http.MethodPost, path, clientID)
}

func (s *contractState) theResponseStatusShouldBe(expected int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, s.response.StatusCode, s.body)
	}
	return nil
}

func (s *contractState) theResponseShouldContain(fragment string) error {
	if !strings.Contains(s.body, fragment) {
		return fmt.Errorf("expected response to contain %q, got %s", fragment, s.body)
	}
	return nil
}
