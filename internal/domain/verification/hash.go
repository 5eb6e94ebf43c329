package verification

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/tuneable/tipledger/internal/domain/ledger"
)

// ComputeHash derives the deterministic integrity hash of a ledger entry's
// critical fields. Every field included here is immutable after creation;
// nothing that could legitimately change later participates. The canonical
// form is a pipe-joined field list hashed with SHA-256, hex-encoded.
func ComputeHash(entry *ledger.Entry) string {
	var b strings.Builder
	b.WriteString(entry.EntryID.String())
	sep(&b, entry.ActorID.String())
	sep(&b, string(entry.Type))
	sep(&b, strconv.FormatInt(entry.Amount, 10))
	writeSnapshot(&b, &entry.Balance)
	writeSnapshot(&b, entry.UserAggregate)
	writeSnapshot(&b, entry.ContentAggregate)
	writeSnapshot(&b, &entry.GlobalAggregate)
	if entry.ContentID != nil {
		sep(&b, entry.ContentID.String())
	} else {
		sep(&b, "")
	}
	sep(&b, entry.ReferenceID)
	sep(&b, entry.ReferenceType)
	// Millisecond precision matches what mongo stores; hashing anything
	// finer would diverge after the entry is read back.
	sep(&b, strconv.FormatInt(entry.CreatedAt.UTC().UnixMilli(), 10))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeSnapshot(b *strings.Builder, s *ledger.Snapshot) {
	if s == nil {
		sep(b, "-")
		return
	}
	sep(b, strconv.FormatInt(s.Pre, 10))
	sep(b, strconv.FormatInt(s.Post, 10))
}

func sep(b *strings.Builder, field string) {
	b.WriteByte('|')
	b.WriteString(field)
}
