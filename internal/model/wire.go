package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Wire-validation errors. Callers (the live channel) log and discard on
// any of these; none of them is ever fatal to the pipeline.
var (
	// ErrControlEvent marks a system control frame (e.g. the stream's
	// "connected" handshake) that carries no notification.
	ErrControlEvent = errors.New("control event")

	// ErrMissingID marks a payload with no resolvable notification ID.
	ErrMissingID = errors.New("notification without id")

	// ErrUnknownKind marks a payload whose tag is outside the closed
	// kind set.
	ErrUnknownKind = errors.New("unknown notification kind")
)

// wireNotification mirrors the loosely-typed JSON the backend emits.
// The REST path and the push path disagree on details (idNotificacion
// vs id, leida as bool vs 0/1), so everything is normalized here and
// nowhere else.
type wireNotification struct {
	IDNotificacion *flexInt        `json:"idNotificacion"`
	ID             *flexInt        `json:"id"`
	IDUsuario      flexInt         `json:"idUsuario"`
	Tipo           string          `json:"tipo"`
	Titulo         string          `json:"titulo"`
	Mensaje        string          `json:"mensaje"`
	Leida          flexBool        `json:"leida"`
	FechaCreacion  string          `json:"fechaCreacion"`
	Datos          json.RawMessage `json:"datos"`

	// Control-frame markers sent by the stream endpoint.
	Type  string `json:"type"`
	Event string `json:"event"`
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	*f = flexInt(n)
	return nil
}

// flexBool accepts true/false, 0/1, and "0"/"1".
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = n != 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = s == "1" || s == "true"
		return nil
	}
	return fmt.Errorf("not a boolean: %s", data)
}

// DecodeWire parses a backend notification payload (REST or stream) into
// a normalized Notification. It returns ErrControlEvent for stream
// handshake frames, ErrMissingID when no ID can be resolved, and
// ErrUnknownKind for tags outside the closed set.
func DecodeWire(data []byte) (Notification, error) {
	var w wireNotification
	if err := json.Unmarshal(data, &w); err != nil {
		return Notification{}, fmt.Errorf("decoding notification: %w", err)
	}

	if w.Type == "connected" || w.Event == "connected" {
		return Notification{}, ErrControlEvent
	}

	kind, ok := ParseKind(w.Tipo)
	if !ok {
		return Notification{}, fmt.Errorf("%w: %q", ErrUnknownKind, w.Tipo)
	}

	var id int
	switch {
	case w.IDNotificacion != nil && int(*w.IDNotificacion) != 0:
		id = int(*w.IDNotificacion)
	case w.ID != nil && int(*w.ID) != 0:
		id = int(*w.ID)
	default:
		return Notification{}, ErrMissingID
	}

	n := Notification{
		ID:          id,
		OwnerUserID: int(w.IDUsuario),
		Kind:        kind,
		Title:       w.Titulo,
		Message:     w.Mensaje,
		Read:        bool(w.Leida),
		CreatedAt:   parseWireTime(w.FechaCreacion),
	}
	if n.Title == "" {
		n.Title = "Sin título"
	}

	if len(w.Datos) > 0 {
		// A bad datos bag degrades to an empty payload rather than
		// discarding the whole notification.
		_ = json.Unmarshal(w.Datos, &n.Payload)
	}

	return n, nil
}

// DecodeWireList parses the REST snapshot body
// {"notificaciones": [...]}. Individual malformed entries are skipped;
// the skipped count is returned so the caller can log it.
func DecodeWireList(data []byte) ([]Notification, int, error) {
	var body struct {
		Notificaciones []json.RawMessage `json:"notificaciones"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, 0, fmt.Errorf("decoding notification list: %w", err)
	}

	out := make([]Notification, 0, len(body.Notificaciones))
	var skipped int
	for _, raw := range body.Notificaciones {
		n, err := DecodeWire(raw)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, n)
	}
	return out, skipped, nil
}

// ReadReceipt is the payload of a notificacion_leida stream event.
type ReadReceipt struct {
	ID int
}

// DecodeReadReceipt parses a read-receipt payload, accepting either
// idNotificacion or id.
func DecodeReadReceipt(data []byte) (ReadReceipt, error) {
	var w struct {
		IDNotificacion *flexInt `json:"idNotificacion"`
		ID             *flexInt `json:"id"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return ReadReceipt{}, fmt.Errorf("decoding read receipt: %w", err)
	}
	switch {
	case w.IDNotificacion != nil && int(*w.IDNotificacion) != 0:
		return ReadReceipt{ID: int(*w.IDNotificacion)}, nil
	case w.ID != nil && int(*w.ID) != 0:
		return ReadReceipt{ID: int(*w.ID)}, nil
	}
	return ReadReceipt{}, ErrMissingID
}

// parseWireTime parses the backend's RFC 3339 timestamps, falling back
// to the current time the way the original client did for absent or
// unparseable values.
func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
