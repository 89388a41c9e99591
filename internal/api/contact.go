package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ContactMessage is a customer message from the contact form. The messaging
// screens are admin-side; the engine only needs the thin CRUD client.
type ContactMessage struct {
	ID        string    `json:"_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	Replied   bool      `json:"replied,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// ContactReply is an admin reply sent back to a message author.
type ContactReply struct {
	MessageID string `json:"messageId"`
	Email     string `json:"email"`
	Reply     string `json:"reply"`
}

func (c *Client) CreateContactMessage(ctx context.Context, msg ContactMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return c.doJSON(ctx, http.MethodPost, "/api/contact", nil, msg, nil)
}

func (c *Client) GetContactMessage(ctx context.Context, id string) (ContactMessage, error) {
	var msg ContactMessage
	err := c.doJSON(ctx, http.MethodGet, contactPath(id), nil, nil, &msg)
	if err != nil {
		return ContactMessage{}, err
	}
	return msg, nil
}

func (c *Client) UpdateContactMessage(ctx context.Context, msg ContactMessage) error {
	if msg.ID == "" {
		return fmt.Errorf("update contact message: missing id")
	}
	return c.doJSON(ctx, http.MethodPut, contactPath(msg.ID), nil, msg, nil)
}

func (c *Client) DeleteContactMessage(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, contactPath(id), nil, nil, nil)
}

func (c *Client) ReplyContactMessage(ctx context.Context, reply ContactReply) error {
	return c.doJSON(ctx, http.MethodPost, "/api/contact/reply", nil, reply, nil)
}

func contactPath(id string) string {
	return fmt.Sprintf("/api/contact/%s", url.PathEscape(id))
}
