package model

// IntegrationItem is the normalized read model for provider objects. Every
// provider response is mapped into this shape so callers handle heterogeneous
// platforms uniformly.
type IntegrationItem struct {
	ID               string         `json:"id"`
	Type             string         `json:"type"`
	Name             string         `json:"name"`
	CreationTime     string         `json:"creation_time,omitempty"`
	LastModifiedTime string         `json:"last_modified_time,omitempty"`
	ParentID         string         `json:"parent_id,omitempty"`
	Properties       map[string]any `json:"properties,omitempty"`
}

// ContactData is the caller-supplied payload for contact-like objects.
type ContactData struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
}
