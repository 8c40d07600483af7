package models

import "time"

// Category is an event category
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Organizer is the user that created an event
type Organizer struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Event represents an EventUp event as returned by the events API
type Event struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Location      string     `json:"location"`
	ImageURL      string     `json:"imageUrl"`
	URL           string     `json:"url"`
	Price         string     `json:"price,omitempty"`
	IsFree        bool       `json:"isFree"`
	StartDateTime time.Time  `json:"startDateTime"`
	EndDateTime   time.Time  `json:"endDateTime"`
	Category      *Category  `json:"category,omitempty"`
	Organizer     *Organizer `json:"organizer,omitempty"`
}

// CategoryID returns the event's category ID or an empty string
func (e *Event) CategoryID() string {
	if e == nil || e.Category == nil {
		return ""
	}
	return e.Category.ID
}

// EventPage is a paginated list of events
type EventPage struct {
	Data       []Event `json:"data"`
	TotalPages int     `json:"totalPages"`
}
