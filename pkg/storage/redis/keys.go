package redis

import (
	"fmt"
	"hash/fnv"

	"github.com/joseairosa/recall-sub001/pkg/memory"
)

// globalNamespace is the fixed namespace for globally scoped keys.
const globalNamespace = "global"

// WorkspaceID derives a stable namespace from a workspace path using a
// non-cryptographic hash (FNV-1a). Collisions are theoretically possible
// and tolerated; the same path always yields the same id.
func WorkspaceID(path string) string {
	h := fnv.New32a()
	h.Write([]byte(path))
	return fmt.Sprintf("ws-%08x", h.Sum32())
}

// Key builders. Every logical index has its own key derived from the
// namespace plus the entity id, type, or tag as applicable. The layout must
// stay stable for interoperability with existing data.

func memoryKey(ns, id string) string {
	return ns + ":memory:" + id
}

func memoryIDsKey(ns string) string {
	return ns + ":memories"
}

func timelineKey(ns string) string {
	return ns + ":memories:timeline"
}

func importantKey(ns string) string {
	return ns + ":memories:important"
}

func typeKey(ns string, t memory.ContextType) string {
	return ns + ":memories:type:" + string(t)
}

func tagKey(ns, tag string) string {
	return ns + ":memories:tag:" + tag
}

func relationshipKey(ns, id string) string {
	return ns + ":relationship:" + id
}

func relationshipIDsKey(ns string) string {
	return ns + ":relationships"
}

func outgoingKey(ns, memoryID string) string {
	return ns + ":relationships:from:" + memoryID
}

func incomingKey(ns, memoryID string) string {
	return ns + ":relationships:to:" + memoryID
}

func runKey(ns, id string) string {
	return ns + ":consolidation:run:" + id
}

func runsKey(ns string) string {
	return ns + ":consolidation:runs"
}

func lastRunKey(ns string) string {
	return ns + ":consolidation:last_run"
}
