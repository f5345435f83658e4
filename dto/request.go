package dto

// CreateSessionRequest opens an upload session for a virtual card
type CreateSessionRequest struct {
	VirtualCardID string `json:"virtualCardId" binding:"required"`
}

// ConsentRequest toggles whether reviewed data is sent to the backend
type ConsentRequest struct {
	SaveToServer *bool `json:"saveToServer" binding:"required"`
}
