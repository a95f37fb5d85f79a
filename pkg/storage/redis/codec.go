package redis

import (
	"encoding/json"
	"strconv"

	"github.com/joseairosa/recall-sub001/pkg/memory"
)

// Hash field layout for persisted entities. Compound fields (tags,
// embedding, metadata, config) are stored as JSON strings inside the hash.

func encodeMemory(m *memory.Memory) map[string]interface{} {
	fields := map[string]interface{}{
		"id":           m.ID,
		"created_at":   strconv.FormatInt(m.CreatedAt, 10),
		"context_type": string(m.ContextType),
		"content":      m.Content,
		"summary":      m.Summary,
		"importance":   strconv.Itoa(m.Importance),
		"session_id":   m.SessionID,
		"ttl_seconds":  strconv.FormatInt(m.TTLSeconds, 10),
		"expires_at":   strconv.FormatInt(m.ExpiresAt, 10),
		"is_global":    boolField(m.IsGlobal),
		"workspace_id": m.WorkspaceID,
		"category":     m.Category,
	}
	fields["tags"] = jsonField(m.Tags)
	fields["embedding"] = jsonField(m.Embedding)
	return fields
}

func decodeMemory(fields map[string]string) (*memory.Memory, error) {
	if len(fields) == 0 || fields["id"] == "" {
		return nil, memory.ErrNotFound
	}

	m := &memory.Memory{
		ID:          fields["id"],
		ContextType: memory.ContextType(fields["context_type"]),
		Content:     fields["content"],
		Summary:     fields["summary"],
		SessionID:   fields["session_id"],
		IsGlobal:    fields["is_global"] == "1",
		WorkspaceID: fields["workspace_id"],
		Category:    fields["category"],
	}
	m.CreatedAt, _ = strconv.ParseInt(fields["created_at"], 10, 64)
	m.Importance, _ = strconv.Atoi(fields["importance"])
	m.TTLSeconds, _ = strconv.ParseInt(fields["ttl_seconds"], 10, 64)
	m.ExpiresAt, _ = strconv.ParseInt(fields["expires_at"], 10, 64)

	if raw := fields["tags"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &m.Tags); err != nil {
			return nil, err
		}
	}
	if raw := fields["embedding"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &m.Embedding); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func encodeRelationship(r *memory.Relationship) map[string]interface{} {
	return map[string]interface{}{
		"id":                r.ID,
		"from_memory_id":    r.FromMemoryID,
		"to_memory_id":      r.ToMemoryID,
		"relationship_type": string(r.Type),
		"created_at":        strconv.FormatInt(r.CreatedAt, 10),
		"metadata":          jsonField(r.Metadata),
	}
}

func decodeRelationship(fields map[string]string) (*memory.Relationship, error) {
	if len(fields) == 0 || fields["id"] == "" {
		return nil, memory.ErrRelationshipNotFound
	}

	r := &memory.Relationship{
		ID:           fields["id"],
		FromMemoryID: fields["from_memory_id"],
		ToMemoryID:   fields["to_memory_id"],
		Type:         memory.RelationType(fields["relationship_type"]),
	}
	r.CreatedAt, _ = strconv.ParseInt(fields["created_at"], 10, 64)

	if raw := fields["metadata"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.Metadata); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func encodeRun(run *memory.ConsolidationRun) map[string]interface{} {
	return map[string]interface{}{
		"id":                    run.ID,
		"timestamp":             strconv.FormatInt(run.Timestamp, 10),
		"config":                jsonField(run.Config),
		"clusters_found":        strconv.Itoa(run.ClustersFound),
		"memories_consolidated": strconv.Itoa(run.MemoriesConsolidated),
		"consolidated_ids":      jsonField(run.ConsolidatedIDs),
		"memories_skipped":      strconv.Itoa(run.MemoriesSkipped),
		"report":                run.Report,
	}
}

func decodeRun(fields map[string]string) (*memory.ConsolidationRun, error) {
	if len(fields) == 0 || fields["id"] == "" {
		return nil, memory.ErrNotFound
	}

	run := &memory.ConsolidationRun{
		ID:     fields["id"],
		Report: fields["report"],
	}
	run.Timestamp, _ = strconv.ParseInt(fields["timestamp"], 10, 64)
	run.ClustersFound, _ = strconv.Atoi(fields["clusters_found"])
	run.MemoriesConsolidated, _ = strconv.Atoi(fields["memories_consolidated"])
	run.MemoriesSkipped, _ = strconv.Atoi(fields["memories_skipped"])

	if raw := fields["config"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &run.Config); err != nil {
			return nil, err
		}
	}
	if raw := fields["consolidated_ids"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &run.ConsolidatedIDs); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// jsonField encodes a compound value as a JSON string, or an empty string
// for nil/empty values.
func jsonField(v interface{}) string {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return ""
		}
	case []float64:
		if len(val) == 0 {
			return ""
		}
	case map[string]string:
		if len(val) == 0 {
			return ""
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
