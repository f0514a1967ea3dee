package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorKind classifies a single manifest violation. Manifests are authored
// by non-engineers, so every check has a distinct kind and message.
type ErrorKind string

const (
	ErrKindMalformedDocument ErrorKind = "malformed_document"
	ErrKindUnsupportedSchema ErrorKind = "unsupported_schema_version"
	ErrKindMissingField      ErrorKind = "missing_required_field"
	ErrKindDuplicateSceneID  ErrorKind = "duplicate_scene_id"
	ErrKindDanglingReference ErrorKind = "dangling_reference"
	ErrKindUnknownSceneType  ErrorKind = "unknown_scene_type"
	ErrKindMissingPayload    ErrorKind = "missing_scene_payload"
	ErrKindMalformedQuiz     ErrorKind = "malformed_quiz"
	ErrKindMalformedChoice   ErrorKind = "malformed_choice"
	ErrKindNegativePoints    ErrorKind = "negative_points"
	ErrKindTotalScoreTooLow  ErrorKind = "total_score_below_obtainable"
)

// ValidationError is one violation found in a manifest document
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	SceneID string    `json:"scene_id,omitempty"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (e ValidationError) Error() string {
	if e.SceneID != "" {
		return fmt.Sprintf("%s (scene %q): %s", e.Kind, e.SceneID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ValidationErrors is the complete list of violations in a document
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// HasKind reports whether any violation has the given kind
func (e ValidationErrors) HasKind(kind ErrorKind) bool {
	for _, ve := range e {
		if ve.Kind == kind {
			return true
		}
	}
	return false
}

// payloadCheck validates a scene's variant payload. Adding a scene type
// means adding one table entry; nothing dispatches on concrete types.
type payloadCheck func(v *validator, s *Scene)

var payloadChecks = map[SceneType]payloadCheck{
	SceneDialogue: (*validator).checkDialogue,
	SceneQuiz:     (*validator).checkQuiz,
	SceneSummary:  (*validator).checkSummary,
}

// Parse decodes a raw manifest document and statically verifies it. All
// checks run eagerly and the complete violation list is returned; a nil
// error list means the manifest is usable. Unknown JSON fields are ignored.
// Parse never panics and is idempotent.
func Parse(raw []byte) (*GameManifest, ValidationErrors) {
	var m GameManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, ValidationErrors{{
			Kind:    ErrKindMalformedDocument,
			Message: fmt.Sprintf("document is not valid JSON: %v", err),
		}}
	}
	if errs := m.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &m, nil
}

// Validate statically verifies an already-decoded manifest. It has no side
// effects; calling it twice yields the same result.
func (m *GameManifest) Validate() ValidationErrors {
	v := &validator{manifest: m}
	v.run()
	return v.errors
}

type validator struct {
	manifest *GameManifest
	sceneIDs map[string]bool
	errors   ValidationErrors
}

func (v *validator) run() {
	m := v.manifest

	if !supportedSchema(m.SchemaVersion) {
		v.add(ValidationError{
			Kind:    ErrKindUnsupportedSchema,
			Field:   "schemaVersion",
			Message: fmt.Sprintf("schema version %q is not supported (supported: %s)", m.SchemaVersion, strings.Join(SupportedSchemaVersions, ", ")),
		})
	}
	if m.GameID == "" {
		v.add(ValidationError{Kind: ErrKindMissingField, Field: "gameId", Message: "gameId is required"})
	}
	if len(m.Scenes) == 0 {
		v.add(ValidationError{Kind: ErrKindMissingField, Field: "scenes", Message: "at least one scene is required"})
	}

	// Collect scene ids first so reference checks see the whole graph
	v.sceneIDs = make(map[string]bool, len(m.Scenes))
	for i := range m.Scenes {
		s := &m.Scenes[i]
		if s.ID == "" {
			v.add(ValidationError{Kind: ErrKindMissingField, Field: "scenes[].id", Message: fmt.Sprintf("scene at index %d has no id", i)})
			continue
		}
		if v.sceneIDs[s.ID] {
			v.add(ValidationError{
				Kind:    ErrKindDuplicateSceneID,
				SceneID: s.ID,
				Message: fmt.Sprintf("scene id %q is used more than once", s.ID),
			})
		}
		v.sceneIDs[s.ID] = true
	}

	if m.StartScene == "" {
		v.add(ValidationError{Kind: ErrKindMissingField, Field: "startScene", Message: "startScene is required"})
	} else if !v.sceneIDs[m.StartScene] {
		v.add(ValidationError{
			Kind:    ErrKindDanglingReference,
			Field:   "startScene",
			Message: fmt.Sprintf("startScene %q does not reference an existing scene", m.StartScene),
		})
	}

	for i := range m.Scenes {
		v.checkScene(&m.Scenes[i])
	}
}

func (v *validator) checkScene(s *Scene) {
	if s.Navigation.Next != "" && !v.sceneIDs[s.Navigation.Next] {
		v.add(ValidationError{
			Kind:    ErrKindDanglingReference,
			SceneID: s.ID,
			Field:   "navigation.next",
			Message: fmt.Sprintf("navigation target %q does not exist", s.Navigation.Next),
		})
	}

	check, ok := payloadChecks[s.Type]
	if !ok {
		v.add(ValidationError{
			Kind:    ErrKindUnknownSceneType,
			SceneID: s.ID,
			Field:   "type",
			Message: fmt.Sprintf("unknown scene type %q", s.Type),
		})
		return
	}
	check(v, s)
}

func (v *validator) checkDialogue(s *Scene) {
	if s.Dialogue == nil {
		v.missingPayload(s, "dialogue")
		return
	}
	for _, c := range s.Dialogue.Choices {
		if c.ID == "" {
			v.add(ValidationError{
				Kind:    ErrKindMalformedChoice,
				SceneID: s.ID,
				Message: "choice without an id",
			})
		}
		if c.NextScene == "" {
			v.add(ValidationError{
				Kind:    ErrKindMalformedChoice,
				SceneID: s.ID,
				Message: fmt.Sprintf("choice %q has no nextScene", c.ID),
			})
		} else if !v.sceneIDs[c.NextScene] {
			v.add(ValidationError{
				Kind:    ErrKindDanglingReference,
				SceneID: s.ID,
				Field:   "choices.nextScene",
				Message: fmt.Sprintf("choice %q targets nonexistent scene %q", c.ID, c.NextScene),
			})
		}
		if c.Points < 0 {
			v.negativePoints(s, fmt.Sprintf("choice %q", c.ID))
		}
	}
}

func (v *validator) checkQuiz(s *Scene) {
	if s.Quiz == nil {
		v.missingPayload(s, "quiz")
		return
	}
	if len(s.Quiz.Options) == 0 {
		v.add(ValidationError{
			Kind:    ErrKindMalformedQuiz,
			SceneID: s.ID,
			Message: "quiz has no options",
		})
	}
	if s.Quiz.MaxAttempts < 1 {
		v.add(ValidationError{
			Kind:    ErrKindMalformedQuiz,
			SceneID: s.ID,
			Field:   "maxAttempts",
			Message: fmt.Sprintf("maxAttempts must be at least 1, got %d", s.Quiz.MaxAttempts),
		})
	}
	seen := make(map[string]bool, len(s.Quiz.Options))
	for _, o := range s.Quiz.Options {
		if o.ID == "" {
			v.add(ValidationError{
				Kind:    ErrKindMalformedQuiz,
				SceneID: s.ID,
				Message: "quiz option without an id",
			})
			continue
		}
		if seen[o.ID] {
			v.add(ValidationError{
				Kind:    ErrKindMalformedQuiz,
				SceneID: s.ID,
				Message: fmt.Sprintf("quiz option id %q is used more than once", o.ID),
			})
		}
		seen[o.ID] = true
		if o.Points < 0 {
			v.negativePoints(s, fmt.Sprintf("option %q", o.ID))
		}
	}
}

func (v *validator) checkSummary(s *Scene) {
	if s.Summary == nil {
		v.missingPayload(s, "summary")
		return
	}
	if s.Summary.TotalScore < 0 {
		v.negativePoints(s, "totalScore")
	}
	// The accumulated score can never exceed the declared total, so the
	// declaration must cover every obtainable point.
	if obtainable := v.manifest.MaxObtainablePoints(); s.Summary.TotalScore < obtainable {
		v.add(ValidationError{
			Kind:    ErrKindTotalScoreTooLow,
			SceneID: s.ID,
			Field:   "totalScore",
			Message: fmt.Sprintf("declared total %d is below the %d points obtainable", s.Summary.TotalScore, obtainable),
		})
	}
}

func (v *validator) missingPayload(s *Scene, field string) {
	v.add(ValidationError{
		Kind:    ErrKindMissingPayload,
		SceneID: s.ID,
		Field:   field,
		Message: fmt.Sprintf("scene of type %q has no %s payload", s.Type, field),
	})
}

func (v *validator) negativePoints(s *Scene, what string) {
	v.add(ValidationError{
		Kind:    ErrKindNegativePoints,
		SceneID: s.ID,
		Message: fmt.Sprintf("%s has negative points", what),
	})
}

func (v *validator) add(e ValidationError) {
	v.errors = append(v.errors, e)
}

func supportedSchema(version string) bool {
	for _, sv := range SupportedSchemaVersions {
		if version == sv {
			return true
		}
	}
	return false
}
