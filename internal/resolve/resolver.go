// File: internal/resolve/resolver.go
// Brief: Deterministic stack resolution: priority scoring and winner selection.

// Package resolve turns a set of independently detected, possibly conflicting
// technology stacks into one deterministic, explainable decision. Scoring is a
// pure function of the candidate: no I/O, no randomness, no shared state.
package resolve

import (
	"errors"
	"sort"

	"github.com/example/autopipe/internal/model"
	"go.uber.org/zap"
)

// ErrNoStacks is returned when resolution is attempted with no candidates.
// Callers must treat it as a hard stop, never default to an assumed stack.
var ErrNoStacks = errors.New("no technology stack detected")

// languagePriority is the fixed precedence list; lower index wins. Backend
// languages rank ahead of frontend ones.
var languagePriority = []model.Language{
	model.LangJava,
	model.LangKotlin,
	model.LangDotNet,
	model.LangGo,
	model.LangPython,
	model.LangPHP,
	model.LangTypeScript,
	model.LangNodeJS,
}

// unrankedLanguageScore is the flat base for languages absent from the
// priority list. Not multiplied by 100.
const unrankedLanguageScore = 999

// frameworkPriority ranks frameworks within a language; lower wins. Frameworks
// absent from the table score defaultFrameworkScore.
var frameworkPriority = map[model.Framework]int{
	// Java / Kotlin
	model.FrameworkSpringBoot: 0,
	model.FrameworkQuarkus:    1,
	model.FrameworkMicronaut:  2,
	model.FrameworkKtor:       3,
	// Python
	model.FrameworkDjango:  0,
	model.FrameworkFastAPI: 1,
	model.FrameworkFlask:   2,
	model.FrameworkAIOHTTP: 3,
	// Node.js / TypeScript: backend first, SSR in the middle, pure frontend last.
	model.FrameworkNestJS:  0,
	model.FrameworkExpress: 1,
	model.FrameworkNextJS:  10,
	model.FrameworkNuxt:    11,
	model.FrameworkAngular: 20,
	model.FrameworkVue:     21,
	model.FrameworkReact:   22,
	// Go
	model.FrameworkGin:   0,
	model.FrameworkEcho:  1,
	model.FrameworkFiber: 2,
	// PHP
	model.FrameworkLaravel:     0,
	model.FrameworkSymfony:     1,
	model.FrameworkYii:         2,
	model.FrameworkCodeIgniter: 3,
	// .NET
	model.FrameworkASPNetCore: 0,
	model.FrameworkBlazor:     1,
}

const defaultFrameworkScore = 50

// Resolver selects a primary stack from detected candidates and enriches it
// with project metadata.
type Resolver struct {
	log *zap.Logger
}

// New returns a Resolver. A nil logger disables decision logging.
func New(log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{log: log}
}

// Score computes the priority score for one candidate; lower means higher
// priority. The adjustments in the final step are all applied independently,
// never mutually exclusive, so pathological combinations stay comparable.
func Score(s *model.DetectedStack) int {
	base := unrankedLanguageScore
	for i, lang := range languagePriority {
		if s.Language == lang {
			base = i * 100
			break
		}
	}

	rank, ok := frameworkPriority[s.Framework]
	if !ok {
		rank = defaultFrameworkScore
	}
	score := base + rank

	// Backend TypeScript outranks frontend/SSR TypeScript.
	if s.Language == model.LangTypeScript &&
		(s.Framework == model.FrameworkNestJS || s.Framework == model.FrameworkExpress) {
		score -= 50
	}
	// Pure frontend JavaScript sinks below every backend candidate.
	if s.Language == model.LangNodeJS &&
		(s.Framework == model.FrameworkReact || s.Framework == model.FrameworkVue || s.Framework == model.FrameworkAngular) {
		score += 200
	}
	// Kotlin with Ktor is a full backend.
	if s.Language == model.LangKotlin && s.Framework == model.FrameworkKtor {
		score -= 10
	}
	if s.HasDockerfile {
		score -= 5
	}
	if s.HasTests {
		score -= 3
	}
	return score
}

// Resolve picks the primary stack from candidates and builds the project
// context. For monorepos the full original candidate list, in its original
// order, is preserved on the context. Ties are broken by input order: the
// sort is stable and no secondary key exists.
func (r *Resolver) Resolve(candidates []*model.DetectedStack, rootPath string) (*model.ProjectContext, error) {
	if len(candidates) == 0 {
		return nil, ErrNoStacks
	}

	isMonorepo := len(candidates) > 1

	ranked := make([]*model.DetectedStack, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Score(ranked[i]) < Score(ranked[j])
	})

	winner := ranked[0]
	r.log.Info("resolved primary stack",
		zap.String("language", string(winner.Language)),
		zap.String("framework", string(winner.Framework)),
		zap.Int("score", Score(winner)))

	if isMonorepo {
		r.log.Info("monorepo detected", zap.Int("projects", len(candidates)))
		for _, s := range ranked[1:] {
			root := s.ProjectRoot
			if root == "" {
				root = "."
			}
			r.log.Debug("additional project",
				zap.String("language", string(s.Language)),
				zap.String("project_root", root))
		}
	}

	metadata := ExtractMetadata(winner, rootPath)

	ctx := &model.ProjectContext{
		Metadata:   metadata,
		Stack:      winner,
		RootPath:   rootPath,
		IsMonorepo: isMonorepo,
	}
	if isMonorepo {
		ctx.DetectedProjects = candidates
	}
	return ctx, nil
}

// ResolveAll builds an independent context for every candidate, rooted at the
// candidate's own project directory, and returns them ranked by the same
// scoring function as Resolve. Used when each detected project needs its own
// downstream pipeline instead of a single winner.
func (r *Resolver) ResolveAll(candidates []*model.DetectedStack, rootPath string) ([]*model.ProjectContext, error) {
	if len(candidates) == 0 {
		return nil, ErrNoStacks
	}

	contexts := make([]*model.ProjectContext, 0, len(candidates))
	for _, s := range candidates {
		projectPath := s.ProjectPath(rootPath)
		contexts = append(contexts, &model.ProjectContext{
			Metadata:   ExtractMetadata(s, projectPath),
			Stack:      s,
			RootPath:   projectPath,
			IsMonorepo: false,
		})
	}

	sort.SliceStable(contexts, func(i, j int) bool {
		return Score(contexts[i].Stack) < Score(contexts[j].Stack)
	})
	return contexts, nil
}
