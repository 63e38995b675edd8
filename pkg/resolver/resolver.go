// Package resolver implements entity resolution: normalizing a mention
// surface form, searching the entity registry for candidates by context
// embedding, and adjudicating matches with an LLM, falling back to
// embedding-only comparison when the LLM is unavailable. Invoked inline
// during extraction (ADR-003: atomicity, no race — see SPEC_FULL.md),
// never as a separate queued job.
package resolver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/entity"
	"github.com/hybridmem/memstore/pkg/embedder"
	"github.com/hybridmem/memstore/pkg/llmclient"
)

// Config mirrors config.EntityConfig without introducing an import
// dependency on the config package.
type Config struct {
	SimilarityThreshold float64
	MaxCandidates       int
	FallbackThreshold   float64
	DedupModel          string
}

// Mention is one entity mention extracted by Phase A of the event
// extractor.
type Mention struct {
	SurfaceForm         string
	CanonicalSuggestion string
	EntityType          string // person, org, project, object, place, other
	Role                string
	Organization        string
	Email               string
	Aliases             []string
	// StartChar/EndChar are the mention's document-absolute offsets within
	// the revision, already translated from the unit-relative offsets
	// Prompt A returns.
	StartChar int
	EndChar   int
}

// Result is what the resolver returns for one mention.
type Result struct {
	EntityID    string
	Created     bool
	NeedsReview bool
}

// decision is the parsed shape of the LLM adjudication response.
type decision struct {
	Decision      string `json:"decision"` // same | different | uncertain
	CanonicalName string `json:"canonical_name"`
	Reason        string `json:"reason"`
}

// Resolver resolves entity mentions against the canonical entity registry.
type Resolver struct {
	client *ent.Client
	db     *sql.DB
	embed  *embedder.Client
	llm    *llmclient.Client
	cfg    Config
	logger *slog.Logger

	// callCache maps entity_type + "::" + normalized name -> entity_id for
	// the lifetime of one extraction call, so the same surface form in Phase B canonical
	// events resolves consistently without re-querying.
	callCache map[string]string
}

// New constructs a Resolver. db must be the same underlying connection the
// client uses (for raw-SQL pgvector candidate search, which ent cannot
// express natively).
func New(client *ent.Client, db *sql.DB, embed *embedder.Client, llm *llmclient.Client, cfg Config) *Resolver {
	return &Resolver{
		client:    client,
		db:        db,
		embed:     embed,
		llm:       llm,
		cfg:       cfg,
		logger:    slog.Default(),
		callCache: make(map[string]string),
	}
}

// NewForCall resets the per-call surface-form cache; call once per
// extraction run (one artifact_uid/revision_id) before resolving its
// mentions.
func (r *Resolver) NewForCall() {
	r.callCache = make(map[string]string)
}

// Normalize collapses whitespace and lowercases name, per the spec's
// normalized_name definition.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func contextText(m Mention) string {
	return fmt.Sprintf("%s, %s, %s, %s", m.CanonicalSuggestion, m.EntityType, m.Role, m.Organization)
}

type candidate struct {
	ID             string
	CanonicalName  string
	NormalizedName string
	Distance       float64
}

// Resolve resolves one mention for (artifactUID, revisionID), returning the
// entity_id it should be linked to. It maintains the call-scoped cache so
// repeated surface forms within one extraction run are stable.
func (r *Resolver) Resolve(ctx context.Context, artifactUID, revisionID string, m Mention) (Result, error) {
	normalized := Normalize(m.CanonicalSuggestion)
	if normalized == "" {
		normalized = Normalize(m.SurfaceForm)
	}

	cacheKey := m.EntityType + "::" + normalized
	if id, ok := r.callCache[cacheKey]; ok {
		if err := r.recordMention(ctx, id, artifactUID, revisionID, m); err != nil {
			return Result{}, err
		}
		return Result{EntityID: id}, nil
	}

	// Exact-match shortcut.
	existing, err := r.client.Entity.Query().
		Where(entity.EntityTypeEQ(entity.EntityType(m.EntityType)), entity.NormalizedNameEQ(normalized)).
		First(ctx)
	if err == nil {
		r.callCache[cacheKey] = existing.ID
		if err := r.addAliasIfNew(ctx, existing.ID, m); err != nil {
			return Result{}, err
		}
		if err := r.recordMention(ctx, existing.ID, artifactUID, revisionID, m); err != nil {
			return Result{}, err
		}
		return Result{EntityID: existing.ID}, nil
	} else if !ent.IsNotFound(err) {
		return Result{}, fmt.Errorf("resolver: exact-match lookup: %w", err)
	}

	contextVec, embedErr := r.embed.Embed(ctx, contextText(m))

	var candidates []candidate
	if embedErr == nil {
		candidates, err = r.candidateSearch(ctx, m.EntityType, contextVec)
		if err != nil {
			return Result{}, fmt.Errorf("resolver: candidate search: %w", err)
		}
	} else {
		r.logger.Warn("resolver: context embedding failed, proceeding without candidates", "error", embedErr)
	}

	llmAvailable := true
	for _, c := range candidates {
		if !llmAvailable {
			break
		}
		d, err := r.adjudicate(ctx, m, c)
		if err != nil {
			r.logger.Warn("resolver: LLM adjudication unavailable, falling back to embedding-only", "error", err)
			llmAvailable = false
			break
		}
		switch d.Decision {
		case "same":
			r.callCache[cacheKey] = c.ID
			if err := r.addAliasIfNew(ctx, c.ID, m); err != nil {
				return Result{}, err
			}
			if err := r.recordMention(ctx, c.ID, artifactUID, revisionID, m); err != nil {
				return Result{}, err
			}
			return Result{EntityID: c.ID}, nil
		case "uncertain":
			id, err := r.createUncertain(ctx, artifactUID, revisionID, m, normalized, c, d.Reason)
			if err != nil {
				return Result{}, err
			}
			r.callCache[cacheKey] = id
			return Result{EntityID: id, Created: true, NeedsReview: true}, nil
		default: // "different"
			continue
		}
	}

	if !llmAvailable && len(candidates) > 0 {
		// Conservative embedding-only fallback: never silently create a
		// duplicate when the model is unavailable.
		top := candidates[0]
		fallbackMaxDistance := 1 - r.cfg.FallbackThreshold
		if top.Distance < fallbackMaxDistance {
			r.callCache[cacheKey] = top.ID
			if err := r.addAliasIfNew(ctx, top.ID, m); err != nil {
				return Result{}, err
			}
			if err := r.recordMention(ctx, top.ID, artifactUID, revisionID, m); err != nil {
				return Result{}, err
			}
			return Result{EntityID: top.ID}, nil
		}
		id, err := r.createUncertain(ctx, artifactUID, revisionID, m, normalized, top, "llm_unavailable: embedding-only fallback below threshold")
		if err != nil {
			return Result{}, err
		}
		r.callCache[cacheKey] = id
		return Result{EntityID: id, Created: true, NeedsReview: true}, nil
	}

	// No candidates confirmed: create a brand new entity.
	id, err := r.createEntity(ctx, artifactUID, revisionID, m, normalized, false)
	if err != nil {
		return Result{}, err
	}
	r.callCache[cacheKey] = id
	return Result{EntityID: id, Created: true}, nil
}

func (r *Resolver) candidateSearch(ctx context.Context, entityType string, query []float32) ([]candidate, error) {
	maxDistance := 1 - r.cfg.SimilarityThreshold
	rows, err := r.db.QueryContext(ctx, `
		SELECT entity_id, canonical_name, normalized_name, context_embedding <=> $1 AS distance
		FROM entities
		WHERE entity_type = $2 AND context_embedding IS NOT NULL AND context_embedding <=> $1 < $3
		ORDER BY distance ASC
		LIMIT $4`,
		pgVector(query), entityType, maxDistance, r.cfg.MaxCandidates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.ID, &c.CanonicalName, &c.NormalizedName, &c.Distance); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Resolver) adjudicate(ctx context.Context, m Mention, c candidate) (decision, error) {
	prompt := fmt.Sprintf(
		"Entity A: surface_form=%q type=%s role=%s org=%s\nEntity B (candidate): canonical_name=%q\nAre these the same real-world entity? Respond as JSON {\"decision\":\"same|different|uncertain\",\"canonical_name\":\"...\",\"reason\":\"...\"}.",
		m.SurfaceForm, m.EntityType, m.Role, m.Organization, c.CanonicalName,
	)
	resp, err := r.llm.Complete(ctx, llmclient.Request{
		SystemPrompt:   "You resolve whether two entity references denote the same real-world entity.",
		UserPrompt:     prompt,
		Model:          r.cfg.DedupModel,
		Temperature:    0,
		MaxTokens:      200,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return decision{}, err
	}
	var d decision
	if err := json.Unmarshal([]byte(resp.Content), &d); err != nil {
		return decision{}, fmt.Errorf("resolver: malformed adjudication JSON: %w", err)
	}
	return d, nil
}

// addAliasIfNew upserts every surface form/alias of m against entityID.
// upsertAliases itself is idempotent (ON CONFLICT DO NOTHING on the unique
// (entity_id, normalized_alias) index), so "if new" is enforced there
// rather than via a separate existence check.
func (r *Resolver) addAliasIfNew(ctx context.Context, entityID string, m Mention) error {
	return r.upsertAliases(ctx, entityID, append([]string{m.SurfaceForm}, m.Aliases...))
}

func (r *Resolver) recordMention(ctx context.Context, entityID, artifactUID, revisionID string, m Mention) error {
	_, err := r.client.EntityMention.Create().
		SetID(uuid.NewString()).
		SetEntityID(entityID).
		SetArtifactUID(artifactUID).
		SetRevisionID(revisionID).
		SetSurfaceForm(m.SurfaceForm).
		SetStartChar(m.StartChar).
		SetEndChar(m.EndChar).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("resolver: insert mention: %w", err)
	}
	return nil
}

func (r *Resolver) createEntity(ctx context.Context, artifactUID, revisionID string, m Mention, normalized string, needsReview bool) (string, error) {
	canonical := m.CanonicalSuggestion
	if canonical == "" {
		canonical = m.SurfaceForm
	}

	id := uuid.NewString()
	create := r.client.Entity.Create().
		SetID(id).
		SetEntityType(entity.EntityType(m.EntityType)).
		SetCanonicalName(canonical).
		SetNormalizedName(normalized).
		SetFirstSeenArtifactUID(artifactUID).
		SetFirstSeenRevisionID(revisionID).
		SetNeedsReview(needsReview)
	if m.Role != "" {
		create = create.SetRole(m.Role)
	}
	if m.Organization != "" {
		create = create.SetOrganization(m.Organization)
	}
	if m.Email != "" {
		create = create.SetEmail(m.Email)
	}

	if _, err := create.Save(ctx); err != nil {
		return "", fmt.Errorf("resolver: create entity: %w", err)
	}

	vec, err := r.embed.Embed(ctx, contextText(m))
	if err == nil {
		if _, execErr := r.db.ExecContext(ctx, `UPDATE entities SET context_embedding = $1 WHERE entity_id = $2`, pgVector(vec), id); execErr != nil {
			r.logger.Warn("resolver: failed to persist context embedding", "entity_id", id, "error", execErr)
		}
	}

	if err := r.upsertAliases(ctx, id, append([]string{m.SurfaceForm}, m.Aliases...)); err != nil {
		return "", err
	}
	if err := r.recordMention(ctx, id, artifactUID, revisionID, m); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Resolver) createUncertain(ctx context.Context, artifactUID, revisionID string, m Mention, normalized string, c candidate, reason string) (string, error) {
	id, err := r.createEntity(ctx, artifactUID, revisionID, m, normalized, true)
	if err != nil {
		return "", err
	}
	from, to := id, c.ID
	if to < from {
		from, to = to, from
	}
	if _, err := r.client.EntityRelation.Create().
		SetID(uuid.NewString()).
		SetEntityID(from).
		SetOtherEntityID(to).
		SetConfidence(1 - c.Distance).
		SetReason(reason).
		SetCreatedAt(time.Now()).
		Save(ctx); err != nil {
		return "", fmt.Errorf("resolver: insert possibly-same relation: %w", err)
	}
	return id, nil
}

func (r *Resolver) upsertAliases(ctx context.Context, entityID string, aliases []string) error {
	for _, a := range aliases {
		normalized := Normalize(a)
		if normalized == "" {
			continue
		}
		err := r.client.EntityAlias.Create().
			SetID(uuid.NewString()).
			SetEntityID(entityID).
			SetAlias(a).
			SetNormalizedAlias(normalized).
			OnConflictColumns("entity_id", "normalized_alias").
			DoNothing().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("resolver: upsert alias: %w", err)
		}
	}
	return nil
}
