package conversation

// Kind is the type of an inbound message
type Kind string

const (
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindLocation Kind = "location"
)

// Photo is one resolution variant of an uploaded photo
type Photo struct {
	FileID string
	Width  int
	Height int
}

// Location is a shared geoposition
type Location struct {
	Latitude  float64
	Longitude float64
}

// User is the operator who sent a message
type User struct {
	ID        int64
	Username  string
	FirstName string
}

// Message is an inbound chat message reduced to what the intakes read
type Message struct {
	ChatID   int64
	Kind     Kind
	Text     string
	Photos   []Photo // ascending resolution
	Location *Location
	Date     int64 // unix seconds
	From     User
}

// LargestPhoto returns the highest resolution variant
func (m Message) LargestPhoto() (Photo, bool) {
	if m.Kind != KindPhoto || len(m.Photos) == 0 {
		return Photo{}, false
	}
	return m.Photos[len(m.Photos)-1], true
}
