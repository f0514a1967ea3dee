package manifest

// SupportedSchemaVersions lists the manifest schema versions this engine
// understands. Authoring tools bump the version on breaking changes only.
var SupportedSchemaVersions = []string{"1.0", "1.1"}

// SceneType discriminates the scene tagged union.
type SceneType string

const (
	SceneDialogue SceneType = "dialogue"
	SceneQuiz     SceneType = "quiz"
	SceneSummary  SceneType = "summary"
)

// GameManifest is the declarative document describing a full training
// session. It is loaded once per session and never mutated. Field names are
// camelCase, matching the authoring portal's contract; unknown fields are
// ignored for forward compatibility.
type GameManifest struct {
	SchemaVersion string            `json:"schemaVersion"`
	GameID        string            `json:"gameId"`
	Metadata      Metadata          `json:"metadata,omitempty"`
	Theme         map[string]string `json:"theme,omitempty"` // opaque to the engine, passed through to renderers
	Scenes        []Scene           `json:"scenes"`
	StartScene    string            `json:"startScene"`
	Settings      Settings          `json:"settings"`
	Achievements  []Achievement     `json:"achievements,omitempty"`
}

// Metadata carries display information about the game
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	Language    string `json:"language,omitempty"`
}

// Settings are global toggles for a game session
type Settings struct {
	AllowNavigation bool `json:"allowNavigation"` // whether back() is legal
	ShowProgress    bool `json:"showProgress"`
	AutoSave        bool `json:"autoSave"`
	SoundEnabled    bool `json:"soundEnabled"`
}

// Scene is one step of the session. Exactly one payload pointer matching
// Type must be set; the validator enforces this via the variant table.
type Scene struct {
	ID         string           `json:"id"`
	Type       SceneType        `json:"type"`
	Navigation Navigation       `json:"navigation,omitempty"`
	Dialogue   *DialoguePayload `json:"dialogue,omitempty"`
	Quiz       *QuizPayload     `json:"quiz,omitempty"`
	Summary    *SummaryPayload  `json:"summary,omitempty"`
}

// Navigation describes a scene's outgoing edge
type Navigation struct {
	Next    string `json:"next,omitempty"`
	CanSkip bool   `json:"canSkip,omitempty"`
}

// DialoguePayload holds a dialogue beat: messages from a character, with
// optional branching choices.
type DialoguePayload struct {
	Character string   `json:"character,omitempty"`
	Messages  []string `json:"messages"`
	Choices   []Choice `json:"choices,omitempty"`
}

// Choice is a branching option on a dialogue scene
type Choice struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	NextScene string `json:"nextScene"`
	Points    int    `json:"points,omitempty"`
}

// QuizPayload holds a scored question
type QuizPayload struct {
	Question      string       `json:"question"`
	Options       []QuizOption `json:"options"`
	MaxAttempts   int          `json:"maxAttempts"`
	AllowMultiple bool         `json:"allowMultiple,omitempty"`
	ShowFeedback  bool         `json:"showFeedback,omitempty"`
}

// QuizOption is one selectable answer
type QuizOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect,omitempty"`
	Points    int    `json:"points,omitempty"`
	Feedback  string `json:"feedback,omitempty"`
}

// SummaryPayload closes a session with the declared total score
type SummaryPayload struct {
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	TotalScore int    `json:"totalScore"`
}

// Achievement is unlocked by a pure predicate over final state
type Achievement struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Unlock      UnlockCondition `json:"unlock"`
}

// UnlockCondition is the achievement predicate. All set fields must hold.
type UnlockCondition struct {
	MinScore           *int   `json:"minScore,omitempty"`
	AllScenesCompleted bool   `json:"allScenesCompleted,omitempty"`
	SceneCompleted     string `json:"sceneCompleted,omitempty"`
}

// Unlocked evaluates the condition against final session state
func (a Achievement) Unlocked(score int, completed map[string]bool, totalScenes int) bool {
	c := a.Unlock
	if c.MinScore != nil && score < *c.MinScore {
		return false
	}
	if c.AllScenesCompleted && len(completed) < totalScenes {
		return false
	}
	if c.SceneCompleted != "" && !completed[c.SceneCompleted] {
		return false
	}
	return true
}

// Scene returns the scene with the given id
func (m *GameManifest) Scene(id string) (*Scene, bool) {
	for i := range m.Scenes {
		if m.Scenes[i].ID == id {
			return &m.Scenes[i], true
		}
	}
	return nil, false
}

// TotalScore returns the total declared by the first summary scene. Falls
// back to the maximum obtainable points when no summary declares one.
func (m *GameManifest) TotalScore() int {
	for i := range m.Scenes {
		if m.Scenes[i].Type == SceneSummary && m.Scenes[i].Summary != nil {
			return m.Scenes[i].Summary.TotalScore
		}
	}
	return m.MaxObtainablePoints()
}

// MaxObtainablePoints sums the best points available from every scene:
// the highest-valued choice per dialogue and every correct option per quiz.
func (m *GameManifest) MaxObtainablePoints() int {
	total := 0
	for i := range m.Scenes {
		s := &m.Scenes[i]
		switch s.Type {
		case SceneDialogue:
			if s.Dialogue == nil {
				continue
			}
			best := 0
			for _, c := range s.Dialogue.Choices {
				if c.Points > best {
					best = c.Points
				}
			}
			total += best
		case SceneQuiz:
			if s.Quiz == nil {
				continue
			}
			for _, o := range s.Quiz.Options {
				if o.IsCorrect {
					total += o.Points
				}
			}
		}
	}
	return total
}

// IsTerminal reports whether a scene ends the session: summary scenes, and
// scenes with no outgoing navigation that cannot be skipped.
func (s *Scene) IsTerminal() bool {
	if s.Type == SceneSummary {
		return true
	}
	return s.Navigation.Next == "" && !s.Navigation.CanSkip
}

// HasChoices reports whether a dialogue scene defines branching choices.
// Choices take precedence over a bare navigation.next.
func (s *Scene) HasChoices() bool {
	return s.Type == SceneDialogue && s.Dialogue != nil && len(s.Dialogue.Choices) > 0
}

// Choice returns the dialogue choice with the given id
func (s *Scene) Choice(id string) (*Choice, bool) {
	if s.Dialogue == nil {
		return nil, false
	}
	for i := range s.Dialogue.Choices {
		if s.Dialogue.Choices[i].ID == id {
			return &s.Dialogue.Choices[i], true
		}
	}
	return nil, false
}

// Option returns the quiz option with the given id
func (s *Scene) Option(id string) (*QuizOption, bool) {
	if s.Quiz == nil {
		return nil, false
	}
	for i := range s.Quiz.Options {
		if s.Quiz.Options[i].ID == id {
			return &s.Quiz.Options[i], true
		}
	}
	return nil, false
}
