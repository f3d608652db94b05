package model

import "time"

// Kind identifies the category of a notification. The set is closed:
// the backend only ever emits these tags, and anything else is rejected
// at the wire boundary.
type Kind string

const (
	KindInvitation   Kind = "invitacion_lista"
	KindTaskAssigned Kind = "tarea_asignada"
	KindComment      Kind = "comentario"
	KindTaskRepeat   Kind = "tarea_repetir"
	KindReminder     Kind = "recordatorio"
	KindChatMessage  Kind = "mensaje_chat"
	KindRoleChanged  Kind = "cambio_rol_lista"
	KindOther        Kind = "otro"
)

// validKinds is the closed set accepted from the wire.
var validKinds = map[Kind]bool{
	KindInvitation:   true,
	KindTaskAssigned: true,
	KindComment:      true,
	KindTaskRepeat:   true,
	KindReminder:     true,
	KindChatMessage:  true,
	KindRoleChanged:  true,
	KindOther:        true,
}

// ParseKind validates a wire tag against the closed kind set.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	return k, validKinds[k]
}

// Payload carries the kind-dependent optional fields of a notification.
// Every field is optional; which ones are populated depends on Kind.
// Pointer fields distinguish "absent" from zero values where the router
// needs that distinction.
type Payload struct {
	ListID   *int   `json:"listaId,omitempty"`
	ListName string `json:"listaNombre,omitempty"`

	TaskID   *int   `json:"tareaId,omitempty"`
	TaskName string `json:"tareaNombre,omitempty"`
	DueDate  string `json:"fechaVencimiento,omitempty"`

	InvitedBy   string `json:"invitadoPor,omitempty"`
	InvitedByID *int   `json:"invitadoPorId,omitempty"`
	Role        string `json:"rol,omitempty"`

	AssignedBy string `json:"asignadoPor,omitempty"`

	MessageID  *int   `json:"idMensaje,omitempty"`
	SenderName string `json:"nombreRemitente,omitempty"`

	NewRole      string `json:"nuevoRol,omitempty"`
	PreviousRole string `json:"rolAnterior,omitempty"`
	ChangedBy    string `json:"modificadoPor,omitempty"`
	ChangedByID  *int   `json:"modificadoPorId,omitempty"`

	RevokedBy   string `json:"revocadoPor,omitempty"`
	RevokedByID *int   `json:"revocadoPorId,omitempty"`
}

// Notification is one event delivered to a user, as held by this client.
type Notification struct {
	ID          int       `json:"idNotificacion"`
	OwnerUserID int       `json:"idUsuario"`
	Kind        Kind      `json:"tipo"`
	Title       string    `json:"titulo"`
	Message     string    `json:"mensaje"`
	Read        bool      `json:"leida"`
	CreatedAt   time.Time `json:"fechaCreacion"`
	Payload     Payload   `json:"datos"`
}

// IsRevocation reports whether an "other" notification carries a
// revoked-access payload, which the router treats as critical.
func (n Notification) IsRevocation() bool {
	return n.Kind == KindOther && n.Payload.RevokedBy != ""
}

// ConnState is the lifecycle state of the live event channel.
type ConnState string

const (
	StateDisconnected       ConnState = "disconnected"
	StateConnecting         ConnState = "connecting"
	StateConnected          ConnState = "connected"
	StateReconnectScheduled ConnState = "reconnect_scheduled"
)
