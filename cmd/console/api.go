package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/civiclearn/game-engine/pkg/engine"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionResponse mirrors the API's session payload
type SessionResponse struct {
	State *apiState `json:"state"`
	Scene *apiScene `json:"scene,omitempty"`
}

// AnswerResponse mirrors the API's answer payload
type AnswerResponse struct {
	Outcome *engine.QuizOutcome `json:"outcome"`
	State   *apiState           `json:"state"`
	Scene   *apiScene           `json:"scene,omitempty"`
}

// apiState carries the fields the console renders
type apiState struct {
	ID             string   `json:"id"`
	GameID         string   `json:"game_id"`
	CurrentSceneID string   `json:"current_scene_id"`
	History        []string `json:"history"`
	Score          int      `json:"score"`
	ElapsedMs      int64    `json:"elapsed_ms"`
	Ended          bool     `json:"ended"`
}

type apiScene struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Navigation struct {
		Next    string `json:"next,omitempty"`
		CanSkip bool   `json:"canSkip,omitempty"`
	} `json:"navigation"`
	Dialogue *struct {
		Character string   `json:"character,omitempty"`
		Messages  []string `json:"messages"`
		Choices   []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"choices,omitempty"`
	} `json:"dialogue,omitempty"`
	Quiz *struct {
		Question      string `json:"question"`
		MaxAttempts   int    `json:"maxAttempts"`
		AllowMultiple bool   `json:"allowMultiple,omitempty"`
		Options       []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"options"`
	} `json:"quiz,omitempty"`
	Summary *struct {
		Title      string `json:"title,omitempty"`
		Message    string `json:"message,omitempty"`
		TotalScore int    `json:"totalScore"`
	} `json:"summary,omitempty"`
}

func listManifests(client *http.Client, baseURL string) ([]string, map[string]string, error) {
	resp, err := client.Get(baseURL + "/v1/manifests")
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var manifestMap map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&manifestMap); err != nil {
		return nil, nil, err
	}

	var names []string
	for name := range manifestMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, manifestMap, nil
}

func createSession(client *http.Client, baseURL string, manifestFile string) (*SessionResponse, error) {
	var sr SessionResponse
	err := postJSON(client, baseURL+"/v1/sessions",
		map[string]string{"manifest": manifestFile}, http.StatusCreated, &sr)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &sr, nil
}

func advanceScene(client *http.Client, baseURL, sessionID string) (*SessionResponse, error) {
	var sr SessionResponse
	err := postJSON(client, fmt.Sprintf("%s/v1/sessions/%s/advance", baseURL, sessionID), nil, http.StatusOK, &sr)
	if err != nil {
		return nil, err
	}
	return &sr, nil
}

func chooseOption(client *http.Client, baseURL, sessionID, choiceID string) (*SessionResponse, error) {
	var sr SessionResponse
	err := postJSON(client, fmt.Sprintf("%s/v1/sessions/%s/choose", baseURL, sessionID),
		map[string]string{"choice_id": choiceID}, http.StatusOK, &sr)
	if err != nil {
		return nil, err
	}
	return &sr, nil
}

func submitAnswer(client *http.Client, baseURL, sessionID string, optionIDs []string) (*AnswerResponse, error) {
	var ar AnswerResponse
	err := postJSON(client, fmt.Sprintf("%s/v1/sessions/%s/answer", baseURL, sessionID),
		map[string][]string{"option_ids": optionIDs}, http.StatusOK, &ar)
	if err != nil {
		return nil, err
	}
	return &ar, nil
}

func goBack(client *http.Client, baseURL, sessionID string) (*SessionResponse, error) {
	var sr SessionResponse
	err := postJSON(client, fmt.Sprintf("%s/v1/sessions/%s/back", baseURL, sessionID), nil, http.StatusOK, &sr)
	if err != nil {
		return nil, err
	}
	return &sr, nil
}

func finalizeSession(client *http.Client, baseURL, sessionID string) (*engine.GameResults, error) {
	var results engine.GameResults
	err := postJSON(client, fmt.Sprintf("%s/v1/sessions/%s/finalize", baseURL, sessionID), nil, http.StatusOK, &results)
	if err != nil {
		return nil, err
	}
	return &results, nil
}

func postJSON(client *http.Client, url string, reqBody interface{}, wantStatus int, out interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBufferString("{}")
	}

	resp, err := client.Post(url, "application/json", body)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
