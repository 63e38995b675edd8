package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/chunk"
	"github.com/hybridmem/memstore/ent/eventevidence"
	"github.com/hybridmem/memstore/ent/eventjob"
	"github.com/hybridmem/memstore/ent/semanticevent"
	"github.com/hybridmem/memstore/pkg/config"
	"github.com/hybridmem/memstore/pkg/llmclient"
	"github.com/hybridmem/memstore/pkg/resolver"
)

// Extractor runs the two-phase event extraction pipeline for one revision.
type Extractor struct {
	client   *ent.Client
	llm      *llmclient.Client
	resolver *resolver.Resolver
	cfg      *config.ExtractionConfig
	logger   *slog.Logger
}

// New constructs an Extractor.
func New(client *ent.Client, llm *llmclient.Client, res *resolver.Resolver, cfg *config.ExtractionConfig) *Extractor {
	return &Extractor{client: client, llm: llm, resolver: res, cfg: cfg, logger: slog.Default()}
}

// Run extracts and canonicalizes events for (artifactUID, revisionID),
// atomically replacing any events from a prior extraction run, then
// enqueues graph_upsert in the same transaction. jobID is the extraction
// run's job_id, recorded on every SemanticEvent as extraction_run_id.
func (e *Extractor) Run(ctx context.Context, jobID, artifactUID, revisionID string, graphMaxAttempts int) error {
	units, err := e.loadUnits(ctx, artifactUID, revisionID)
	if err != nil {
		return fmt.Errorf("extractor: load units: %w", err)
	}

	var allEvents []absEvent
	var allEntities []phaseAEntity
	successCount := 0
	for _, u := range units {
		result, err := e.runPhaseA(ctx, u)
		if err != nil {
			e.logger.Warn("extractor: phase A failed for unit, treating as empty",
				"artifact_uid", artifactUID, "revision_id", revisionID, "chunk_id", u.ChunkID, "error", err)
			continue
		}
		successCount++
		allEntities = append(allEntities, translateEntityOffsets(u, result.Entities)...)
		allEvents = append(allEvents, translateOffsets(u, result)...)
	}
	if len(units) > 0 && successCount == 0 {
		return fmt.Errorf("extractor: phase A failed for every unit of revision %s", revisionID)
	}

	canonical, err := e.runPhaseB(ctx, allEvents)
	if err != nil {
		return fmt.Errorf("extractor: phase B: %w", err)
	}

	e.resolver.NewForCall()
	entityBySurface, err := e.resolveEntities(ctx, artifactUID, revisionID, allEntities)
	if err != nil {
		return fmt.Errorf("extractor: entity resolution: %w", err)
	}

	return e.writeReplace(ctx, jobID, artifactUID, revisionID, canonical, entityBySurface, graphMaxAttempts)
}

// loadUnits returns the revision's Chunk rows ordered by index, or a single
// synthetic unit wrapping the whole artifact content when it was stored
// unchunked.
func (e *Extractor) loadUnits(ctx context.Context, artifactUID, revisionID string) ([]unit, error) {
	chunks, err := e.client.Chunk.Query().
		Where(chunk.RevisionIDEQ(revisionID)).
		Order(ent.Asc(chunk.FieldIndex)).
		All(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) > 0 {
		units := make([]unit, len(chunks))
		for i, c := range chunks {
			units[i] = unit{ChunkID: c.ID, Index: c.Index, StartChar: c.StartChar, EndChar: c.EndChar, Text: c.Text}
		}
		return units, nil
	}

	rev, err := e.client.ArtifactRevision.Get(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	return []unit{{Index: 0, StartChar: 0, EndChar: len(rev.Content), Text: rev.Content}}, nil
}

func (e *Extractor) runPhaseA(ctx context.Context, u unit) (phaseAResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.LLMTimeout)
	defer cancel()

	resp, err := e.llm.Complete(callCtx, llmclient.Request{
		SystemPrompt:   promptASystem,
		UserPrompt:     promptAUser(u.Text),
		Model:          e.cfg.ExtractModel,
		Temperature:    0,
		MaxTokens:      4096,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return phaseAResult{}, err
	}
	return parsePhaseA(resp.Content)
}

// translateEntityOffsets converts one unit's Phase-A entity mentions to
// document-absolute start_char/end_char, the same translation
// translateOffsets applies to evidence spans.
func translateEntityOffsets(u unit, entities []phaseAEntity) []phaseAEntity {
	out := make([]phaseAEntity, len(entities))
	for i, pe := range entities {
		pe.StartChar += u.StartChar
		pe.EndChar += u.StartChar
		out[i] = pe
	}
	return out
}

// translateOffsets converts one unit's Phase-A result into absEvents with
// document-absolute evidence offsets: absolute_start = unit.StartChar +
// relative_start.
func translateOffsets(u unit, r phaseAResult) []absEvent {
	out := make([]absEvent, 0, len(r.Events))
	for _, ev := range r.Events {
		evidence := make([]absEvidence, 0, len(ev.Evidence))
		for _, ev2 := range ev.Evidence {
			evidence = append(evidence, absEvidence{
				ChunkID: u.ChunkID,
				Start:   u.StartChar + ev2.RelativeStart,
				End:     u.StartChar + ev2.RelativeEnd,
				Quote:   ev2.Quote,
			})
		}
		out = append(out, absEvent{
			Category:   ev.Category,
			EventTime:  ev.EventTime,
			Narrative:  ev.Narrative,
			Subject:    ev.Subject,
			Actors:     ev.Actors,
			Confidence: clamp01(ev.Confidence),
			Evidence:   evidence,
		})
	}
	return out
}

func (e *Extractor) runPhaseB(ctx context.Context, events []absEvent) ([]canonicalEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	var evidenceFlat []absEvidence
	for _, ev := range events {
		evidenceFlat = append(evidenceFlat, ev.Evidence...)
	}

	prompt, err := promptBUser(events, evidenceFlat)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.LLMTimeout)
	defer cancel()

	resp, err := e.llm.Complete(callCtx, llmclient.Request{
		SystemPrompt:   promptBSystem,
		UserPrompt:     prompt,
		Model:          e.cfg.CanonicalizeModel,
		Temperature:    0,
		MaxTokens:      8192,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return nil, err
	}
	parsed, err := parsePhaseB(resp.Content)
	if err != nil {
		return nil, err
	}

	for i := range parsed.CanonicalEvents {
		ce := &parsed.CanonicalEvents[i]
		ce.Category = normalizeCategory(ce.Category, e.cfg.CategoryAutonormalize)
		ce.Narrative = truncateWords(ce.Narrative, e.cfg.MaxNarrativeWords)
		ce.Confidence = clamp01(ce.Confidence)
		for _, idx := range ce.EvidenceIdx {
			if idx < 0 || idx >= len(evidenceFlat) {
				continue
			}
			span := evidenceFlat[idx]
			span.Quote = truncateWords(span.Quote, e.cfg.MaxQuoteWords)
			ce.Evidence = append(ce.Evidence, span)
		}
	}
	return parsed.CanonicalEvents, nil
}

// resolveEntities resolves every Phase-A entity mention and returns a
// lookup from normalized surface form (and alias) to entity_id, used to
// link canonical events' subject/actors after canonicalization.
func (e *Extractor) resolveEntities(ctx context.Context, artifactUID, revisionID string, entities []phaseAEntity) (map[string]string, error) {
	lookup := make(map[string]string)
	for _, pe := range entities {
		m := resolver.Mention{
			SurfaceForm:         pe.SurfaceForm,
			CanonicalSuggestion: pe.CanonicalSuggestion,
			EntityType:          pe.Type,
			Role:                pe.Role,
			Organization:        pe.Organization,
			Email:               pe.Email,
			Aliases:             pe.Aliases,
			StartChar:           pe.StartChar,
			EndChar:             pe.EndChar,
		}
		res, err := e.resolver.Resolve(ctx, artifactUID, revisionID, m)
		if err != nil {
			return nil, err
		}
		lookup[resolver.Normalize(pe.SurfaceForm)] = res.EntityID
		for _, a := range pe.Aliases {
			lookup[resolver.Normalize(a)] = res.EntityID
		}
		if pe.CanonicalSuggestion != "" {
			lookup[resolver.Normalize(pe.CanonicalSuggestion)] = res.EntityID
		}
	}
	return lookup, nil
}

// writeReplace atomically replaces the revision's events with canonical,
// then enqueues graph_upsert in the same transaction.
func (e *Extractor) writeReplace(ctx context.Context, jobID, artifactUID, revisionID string, canonical []canonicalEvent, entityBySurface map[string]string, graphMaxAttempts int) error {
	tx, err := e.client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("extractor: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existingIDs, err := tx.SemanticEvent.Query().
		Where(semanticevent.ArtifactUIDEQ(artifactUID), semanticevent.RevisionIDEQ(revisionID)).
		IDs(ctx)
	if err != nil {
		return fmt.Errorf("extractor: query existing events: %w", err)
	}
	if len(existingIDs) > 0 {
		if _, err := tx.EventEvidence.Delete().Where(eventevidence.EventIDIn(existingIDs...)).Exec(ctx); err != nil {
			return fmt.Errorf("extractor: delete evidence: %w", err)
		}
		// EventActor/EventSubject rows cascade-delete with their event.
		if _, err := tx.SemanticEvent.Delete().Where(semanticevent.IDIn(existingIDs...)).Exec(ctx); err != nil {
			return fmt.Errorf("extractor: delete events: %w", err)
		}
	}

	for _, ce := range canonical {
		eventID := "evt_" + uuid.NewString()
		actorsJSON := make([]map[string]interface{}, 0, len(ce.Actors))
		for _, a := range ce.Actors {
			actorsJSON = append(actorsJSON, map[string]interface{}{"surface_form": a.SurfaceForm, "role": a.Role})
		}
		create := tx.SemanticEvent.Create().
			SetID(eventID).
			SetArtifactUID(artifactUID).
			SetRevisionID(revisionID).
			SetCategory(ce.Category).
			SetNarrative(ce.Narrative).
			SetActorsJSON(actorsJSON).
			SetConfidence(ce.Confidence).
			SetExtractionRunID(jobID)
		if ce.EventTime != nil {
			create = create.SetEventTime(*ce.EventTime)
		}
		if ce.Subject != "" {
			create = create.SetSubjectJSON(map[string]interface{}{"surface_form": ce.Subject})
		}
		if _, err := create.Save(ctx); err != nil {
			return fmt.Errorf("extractor: insert event: %w", err)
		}

		for _, ev := range ce.Evidence {
			evidenceCreate := tx.EventEvidence.Create().
				SetID(uuid.NewString()).
				SetEventID(eventID).
				SetRevisionID(revisionID).
				SetStartChar(ev.Start).
				SetEndChar(ev.End).
				SetQuote(ev.Quote)
			if ev.ChunkID != "" {
				evidenceCreate = evidenceCreate.SetChunkID(ev.ChunkID)
			}
			if _, err := evidenceCreate.Save(ctx); err != nil {
				return fmt.Errorf("extractor: insert evidence: %w", err)
			}
		}

		if ce.Subject != "" {
			if entityID, ok := entityBySurface[resolver.Normalize(ce.Subject)]; ok {
				if err := tx.EventSubject.Create().
					SetEventID(eventID).
					SetEntityID(entityID).
					Exec(ctx); err != nil {
					return fmt.Errorf("extractor: insert subject link: %w", err)
				}
			}
		}
		for _, a := range ce.Actors {
			entityID, ok := entityBySurface[resolver.Normalize(a.SurfaceForm)]
			if !ok {
				continue
			}
			actorCreate := tx.EventActor.Create().SetEventID(eventID).SetEntityID(entityID)
			if a.Role != "" {
				actorCreate = actorCreate.SetRole(a.Role)
			}
			if err := actorCreate.Exec(ctx); err != nil {
				return fmt.Errorf("extractor: insert actor link: %w", err)
			}
		}
	}

	if err := tx.EventJob.Create().
		SetID(uuid.NewString()).
		SetArtifactUID(artifactUID).
		SetRevisionID(revisionID).
		SetJobType(eventjob.JobTypeGraphUpsert).
		SetMaxAttempts(graphMaxAttempts).
		OnConflictColumns("artifact_uid", "revision_id", "job_type").
		DoNothing().
		Exec(ctx); err != nil {
		return fmt.Errorf("extractor: enqueue graph_upsert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("extractor: commit: %w", err)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "…"
}
