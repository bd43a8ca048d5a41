// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package presence tracks who is in the room: a map from participant
// identity to the display name it last announced.
//
// The directory changes only when an AboutMe arrives (and once at
// session start, for the local participant). Announcements are applied
// in arrival order with no timestamps, so a delayed announcement can
// overwrite a newer name. Entries are never evicted; a participant who
// leaves silently stays listed for the rest of the session.
//
// A Directory is owned by the session loop and is not safe for
// concurrent use.
package presence

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/bureau-foundation/chatroom/lib/identity"
)

// SystemLabel is the log label used for notices the directory
// synthesizes.
const SystemLabel = "System"

// NoticeKind classifies a Notice.
type NoticeKind int

const (
	// Joined is emitted the first time an identity announces itself.
	Joined NoticeKind = iota + 1
	// Renamed is emitted when a known identity announces a different
	// name.
	Renamed
)

// Notice is a system message for the transcript.
type Notice struct {
	Kind NoticeKind
	ID   identity.ID
	Text string
}

// Member is one directory entry.
type Member struct {
	ID   identity.ID
	Name string
}

// Directory maps identities to display names.
type Directory struct {
	names map[identity.ID]string
}

// New returns a directory that already knows the local participant
// when selfName is non-empty.
func New(self identity.ID, selfName string) *Directory {
	directory := &Directory{names: make(map[identity.ID]string)}
	if selfName != "" {
		directory.names[self] = selfName
	}
	return directory
}

// ObserveAboutMe records an announcement and returns the notices it
// produces: Joined for an identity seen for the first time, Renamed for
// a known identity whose name changed, nothing for a repeat.
func (d *Directory) ObserveAboutMe(from identity.ID, name string) []Notice {
	previous, known := d.names[from]
	d.names[from] = name

	switch {
	case !known:
		return []Notice{{Kind: Joined, ID: from, Text: fmt.Sprintf("%s joined", name)}}
	case previous != name:
		return []Notice{{Kind: Renamed, ID: from, Text: fmt.Sprintf("%s is now known as %s", previous, name)}}
	default:
		return nil
	}
}

// ResolveLabel returns the display name for id, or a short prefix of
// the identity when no name has been announced.
func (d *Directory) ResolveLabel(id identity.ID) string {
	if name, ok := d.names[id]; ok {
		return name
	}
	return id.Short()
}

// Contains reports whether id has announced a name.
func (d *Directory) Contains(id identity.ID) bool {
	_, ok := d.names[id]
	return ok
}

// Members returns every entry ordered by name, then identity.
func (d *Directory) Members() []Member {
	members := make([]Member, 0, len(d.names))
	for id, name := range d.names {
		members = append(members, Member{ID: id, Name: name})
	}
	slices.SortFunc(members, func(a, b Member) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return members
}
