package fsm

import (
	"io"
	"strings"
)

type EventKind int

const (
	EventCommand EventKind = iota
	EventText
	EventCallback
	EventDocument
	EventLocation
)

// Document describes an uploaded file. Open is lazy so handlers that only
// validate the name never download the payload.
type Document struct {
	FileName string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

type Location struct {
	Lat float64
	Lon float64
}

// Event is the transport-agnostic view of one inbound update.
type Event struct {
	Kind     EventKind
	ChatID   int64
	SenderID int64

	// Sender profile as the transport reports it, when it does.
	SenderFirstName string
	SenderLastName  string
	Command  string // "/cancel", without arguments
	Text     string // message text or command arguments
	Data     string // callback payload
	Document *Document
	Location *Location
}

type Matcher func(Event) bool

func OnCommand(cmd string) Matcher {
	return func(ev Event) bool {
		return ev.Kind == EventCommand && ev.Command == cmd
	}
}

func OnText() Matcher {
	return func(ev Event) bool {
		return ev.Kind == EventText
	}
}

// OnCallback matches callback events whose payload starts with the prefix.
func OnCallback(prefix string) Matcher {
	return func(ev Event) bool {
		return ev.Kind == EventCallback && strings.HasPrefix(ev.Data, prefix)
	}
}

func OnDocument() Matcher {
	return func(ev Event) bool {
		return ev.Kind == EventDocument
	}
}

func OnLocation() Matcher {
	return func(ev Event) bool {
		return ev.Kind == EventLocation
	}
}
