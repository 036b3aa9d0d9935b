package domain

import (
	interfaces "argoya/internal/domain/interfaces"
	types "argoya/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	DisplayName   = types.DisplayName
	SessionID     = types.SessionID
	MessageID     = types.MessageID
	Fingerprint   = types.Fingerprint
	Session       = types.Session
	JoinResult    = types.JoinResult
	Message       = types.Message
	RemoteMessage = types.RemoteMessage
	KeyMaterial   = types.KeyMaterial
	PeerKey       = types.PeerKey
	KeyEnvelope   = types.KeyEnvelope
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Transport          = interfaces.Transport
	KeyDirectory       = interfaces.KeyDirectory
	MessageStore       = interfaces.MessageStore
	ParticipantStore   = interfaces.ParticipantStore
	KeyRing            = interfaces.KeyRing
	KeyService         = interfaces.KeyService
	KeyExchangeService = interfaces.KeyExchangeService
	SyncService        = interfaces.SyncService
)

// Constants re-exported from the types subpackage.
const (
	PlaceholderText = types.PlaceholderText
	RecipientAll    = types.RecipientAll
	SessionKeySize  = types.SessionKeySize
)
