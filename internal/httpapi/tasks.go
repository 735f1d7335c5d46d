package httpapi

import (
	"fmt"

	"tutord/internal/engine"
	"tutord/internal/prompt"
	"tutord/pkg/types"
)

// taskRoute declares one learning endpoint: where it lives, which prompt kind
// it selects, its required primary field, and how the wire payload maps onto
// an engine request. The endpoints differ only by this table.
type taskRoute struct {
	path string
	task prompt.Kind
	// field names the required primary input, for the error message.
	field   string
	primary func(types.GenerateRequest) string
	// streaming also registers <path>-stream with SSE delivery.
	streaming bool
	build     func(req types.GenerateRequest, primary string) engine.Request
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var taskRoutes = []taskRoute{
	{
		path:      "/debug-code",
		task:      prompt.KindDebug,
		field:     "question",
		primary:   func(r types.GenerateRequest) string { return r.Question },
		streaming: true,
		build: func(r types.GenerateRequest, q string) engine.Request {
			return engine.Request{Question: q, Code: r.Code}
		},
	},
	{
		path:      "/review-code",
		task:      prompt.KindReview,
		field:     "code",
		primary:   func(r types.GenerateRequest) string { return r.Code },
		streaming: true,
		build: func(r types.GenerateRequest, code string) engine.Request {
			return engine.Request{
				Question: fmt.Sprintf("Review this %s code and provide:\n1. Code quality assessment\n2. Potential bugs or issues\n3. Security concerns\n4. Performance improvements\n5. Best practices recommendations", r.Context),
				Code:     code,
				Record:   "Review:\n" + code,
			}
		},
	},
	{
		path:    "/get-hint",
		task:    prompt.KindHint,
		field:   "problem",
		primary: func(r types.GenerateRequest) string { return r.Problem },
		build: func(r types.GenerateRequest, problem string) engine.Request {
			return engine.Request{
				Question: "Student is stuck on: " + problem + "\n\nProvide a subtle hint that guides them without giving away the answer. Ask leading questions if helpful.",
				Code:     r.CurrentCode,
				Record:   "Need hint: " + problem,
			}
		},
	},
	{
		path:    "/generate-tests",
		task:    prompt.KindTest,
		field:   "code",
		primary: func(r types.GenerateRequest) string { return r.Code },
		build: func(r types.GenerateRequest, code string) engine.Request {
			framework := orDefault(r.Framework, "jest")
			return engine.Request{
				Question: fmt.Sprintf("Generate comprehensive %s test cases for this %s.\n\nInclude:\n1. Happy path tests\n2. Edge cases\n3. Error scenarios\n4. Boundary conditions", framework, r.Functionality),
				Code:     code,
				Record:   "Generate tests:\n" + code,
			}
		},
	},
	{
		path:      "/explain-concept",
		task:      prompt.KindExplain,
		field:     "concept",
		primary:   func(r types.GenerateRequest) string { return r.Concept },
		streaming: true,
		build: func(r types.GenerateRequest, concept string) engine.Request {
			level := orDefault(r.Level, "beginner")
			return engine.Request{
				Question: fmt.Sprintf("Explain '%s' for a %s level student. Include:\n1. Clear definition\n2. Why it's important\n3. Practical example\n4. Common mistakes to avoid", concept, level),
				Record:   "Explain: " + concept,
			}
		},
	},
	{
		path:    "/project-guidance",
		task:    prompt.KindGuide,
		field:   "feature",
		primary: func(r types.GenerateRequest) string { return r.Feature },
		build: func(r types.GenerateRequest, feature string) engine.Request {
			projectType := orDefault(r.ProjectType, "MERN app")
			return engine.Request{
				Question: fmt.Sprintf("Guide me to build '%s' in a %s.\n\nCurrent progress: %s\n\nProvide:\n1. Step-by-step breakdown\n2. What files to create/modify\n3. Key concepts needed\n4. Common pitfalls", feature, projectType, r.Progress),
				Record:   "Build feature: " + feature,
				Feature:  feature,
			}
		},
	},
	{
		path:      "/chat",
		task:      prompt.KindChat,
		field:     "message",
		primary:   func(r types.GenerateRequest) string { return r.Message },
		streaming: true,
		build: func(r types.GenerateRequest, message string) engine.Request {
			return engine.Request{Question: message}
		},
	},
}
