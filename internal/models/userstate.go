package models

// ConversationState represents the state of a conversation with a user
type ConversationState int

const (
	// Default is the initial state
	Default ConversationState = iota
	// AwaitingFindUser is the state when an admin is entering a user to look up
	AwaitingFindUser
	// AwaitingDuration is the state when an admin is entering a day count
	AwaitingDuration
	// AwaitConfirmUserDeletion is the state when an admin is confirming user deletion
	AwaitConfirmUserDeletion
)

// UserState represents the state of a user's conversation
type UserState struct {
	State   ConversationState
	Payload *string
}
