// Package snapshot turns inbound status payloads into fully-defaulted
// domain snapshots. Missing or mistyped nested fields take their defaults
// instead of failing the whole message; a bad worker or mode entry is
// dropped on its own.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jaakkos/helmpanel/internal/domain"
)

// ErrNotObject is returned when the payload is not a JSON object at all.
var ErrNotObject = errors.New("snapshot payload is not a JSON object")

type fields map[string]json.RawMessage

// Decode parses a snapshot payload. Only a payload that is not a JSON
// object is rejected; every nested field is optional.
func Decode(payload []byte) (domain.Snapshot, error) {
	var top fields
	if err := json.Unmarshal(payload, &top); err != nil || top == nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", ErrNotObject)
	}

	snap := domain.Snapshot{
		Broadcast: boolField(top, "liveUpdate", false),
		Workers:   []domain.Worker{},
	}

	if status := objectField(top, "status"); status != nil {
		for _, raw := range arrayField(status, "workers") {
			if w, ok := decodeWorker(raw); ok {
				snap.Workers = append(snap.Workers, w)
			}
		}
	}

	if ui := objectField(top, "ui"); ui != nil {
		flags := &domain.UIFlags{
			Worker:      stringField(ui, "worker", ""),
			ModesLocked: boolField(ui, "modesLocked", true),
		}
		if v, ok := optionalBool(ui, "liveUpdate"); ok {
			flags.LiveUpdate = &v
		}
		snap.UI = flags
	}
	return snap, nil
}

// HasStatus reports whether a payload carries a status section, which is
// how the router tells snapshots from other replies.
func HasStatus(payload []byte) bool {
	var top fields
	if err := json.Unmarshal(payload, &top); err != nil {
		return false
	}
	_, ok := top["status"]
	return ok
}

func decodeWorker(raw json.RawMessage) (domain.Worker, bool) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return domain.Worker{}, false
	}
	name := stringField(f, "name", "")
	if name == "" {
		return domain.Worker{}, false
	}

	w := domain.Worker{
		Name:       name,
		ActiveMode: domain.ActiveNone,
		FirstMode:  stringField(f, "firstMode", ""),
		Ready:      boolField(f, "ready", false),
		Modes:      []domain.Mode{},
		SubWorkers: []domain.SubWorkerRef{},
	}
	if s, ok := optionalString(f, "status"); ok {
		w.Status = &s
	}
	if active := objectField(f, "active"); active != nil {
		w.ActiveMode = stringField(active, "mode", domain.ActiveNone)
		w.ActiveStep = stringField(active, "step", "")
		w.ActiveAction = stringField(active, "action", "")
	}
	if w.ActiveMode == "" {
		w.ActiveMode = domain.ActiveNone
	}

	for _, mraw := range arrayField(f, "modes") {
		var mf fields
		if err := json.Unmarshal(mraw, &mf); err != nil || mf == nil {
			continue
		}
		mode := stringField(mf, "mode", "")
		if mode == "" {
			continue
		}
		w.Modes = append(w.Modes, domain.Mode{
			Name:   mode,
			Status: domain.ParseModeStatus(stringField(mf, "status", "")),
		})
	}

	for _, sraw := range arrayField(f, "subWorkers") {
		var sf fields
		if err := json.Unmarshal(sraw, &sf); err != nil || sf == nil {
			continue
		}
		sname := stringField(sf, "name", "")
		if sname == "" {
			continue
		}
		w.SubWorkers = append(w.SubWorkers, domain.SubWorkerRef{
			Name:   sname,
			Ready:  boolField(sf, "ready", false),
			Status: boolField(sf, "status", false),
		})
	}
	return w, true
}

func objectField(f fields, key string) fields {
	raw, ok := f[key]
	if !ok {
		return nil
	}
	var out fields
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func arrayField(f fields, key string) []json.RawMessage {
	raw, ok := f[key]
	if !ok {
		return nil
	}
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func optionalString(f fields, key string) (string, bool) {
	raw, ok := f[key]
	if !ok {
		return "", false
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return "", false
	}
	return *s, true
}

func stringField(f fields, key, fallback string) string {
	if s, ok := optionalString(f, key); ok {
		return s
	}
	return fallback
}

func optionalBool(f fields, key string) (bool, bool) {
	raw, ok := f[key]
	if !ok {
		return false, false
	}
	var b *bool
	if err := json.Unmarshal(raw, &b); err != nil || b == nil {
		return false, false
	}
	return *b, true
}

func boolField(f fields, key string, fallback bool) bool {
	if b, ok := optionalBool(f, key); ok {
		return b
	}
	return fallback
}
