// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package extension defines the data model shared by the extension host:
// descriptors, identifiers, activation reasons, loaded modules and the
// records produced by activation.
package extension

import (
	"slices"
	"strings"
)

// StarEvent is the wildcard activation event. Extensions declaring it are
// activated by the eager sweep.
const StarEvent = "*"

// StartupFinishedEvent is fired once the eager sweep completes or is abandoned.
const StartupFinishedEvent = "onStartupFinished"

// Identifier identifies an extension. Two identifiers are equal when they
// match case-insensitively; Key returns the canonical form used in lookups.
type Identifier string

// Key returns the lowercase form of the identifier.
func (id Identifier) Key() string {
	return strings.ToLower(string(id))
}

// Equals reports whether both identifiers designate the same extension.
func (id Identifier) Equals(other Identifier) bool {
	return strings.EqualFold(string(id), string(other))
}

// String returns the identifier as declared
func (id Identifier) String() string {
	return string(id)
}

// Descriptor describes an installed extension. Descriptors are immutable once
// handed to the registry.
type Descriptor struct {
	// ID is the extension identifier, usually "<publisher>.<name>".
	ID Identifier `json:"id" yaml:"id"`
	// Name is the extension name.
	Name string `json:"name" yaml:"name"`
	// Publisher is the extension publisher.
	Publisher string `json:"publisher" yaml:"publisher"`
	// Version is the extension version.
	Version string `json:"version" yaml:"version"`
	// Location is the directory holding the extension code.
	Location string `json:"location" yaml:"location"`
	// Main is the entry point. An extension without entry point activates
	// without loading any code.
	Main string `json:"main,omitempty" yaml:"main,omitempty"`
	// Builtin marks extensions shipped with the host.
	Builtin bool `json:"builtin,omitempty" yaml:"builtin,omitempty"`
	// ActivationEvents lists the events activating the extension.
	ActivationEvents []string `json:"activationEvents,omitempty" yaml:"activationEvents,omitempty"`
	// Dependencies lists the extensions that must be activated first.
	Dependencies []Identifier `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// UnderDevelopment marks extensions loaded from a development location.
	UnderDevelopment bool `json:"underDevelopment,omitempty" yaml:"underDevelopment,omitempty"`
}

// HasEntryPoint reports whether the extension ships code to load.
func (d *Descriptor) HasEntryPoint() bool {
	return d.Main != ""
}

// DeclaresEvent reports whether the descriptor declares the given activation event.
func (d *Descriptor) DeclaresEvent(event string) bool {
	return slices.Contains(d.ActivationEvents, event)
}

// Mode returns the mode the extension runs in.
func (d *Descriptor) Mode() Mode {
	if d.UnderDevelopment {
		return ModeDevelopment
	}
	return ModeProduction
}

// Mode is the mode an extension runs in.
type Mode int

const (
	// ModeProduction is the default mode.
	ModeProduction Mode = iota
	// ModeDevelopment is used for extensions under development.
	ModeDevelopment
)

// String returns the mode name
func (m Mode) String() string {
	if m == ModeDevelopment {
		return "development"
	}
	return "production"
}

// ActivationReason is passed through every activation call for diagnostics.
type ActivationReason struct {
	// Startup is true when the activation is part of the eager sweep.
	Startup bool
	// ExtensionID is the extension whose activation was requested first.
	// Dependencies activated on its behalf carry the same root.
	ExtensionID Identifier
	// ActivationEvent is the event that triggered the activation.
	ActivationEvent string
}

// Delta is the unit of hot registry mutation.
type Delta struct {
	// ToAdd holds descriptors added to the global registry.
	ToAdd []*Descriptor
	// ToRemove holds identifiers removed from the global registry.
	ToRemove []Identifier
	// MyToAdd holds identifiers added to the local registry.
	MyToAdd []Identifier
	// MyToRemove holds identifiers removed from the local registry.
	MyToRemove []Identifier
	// AddActivationEvents maps extension identifiers to activation events
	// recorded before the snapshots are rebuilt.
	AddActivationEvents map[Identifier][]string
}

// IsEmpty reports whether the delta carries no change.
func (d Delta) IsEmpty() bool {
	return len(d.ToAdd) == 0 &&
		len(d.ToRemove) == 0 &&
		len(d.MyToAdd) == 0 &&
		len(d.MyToRemove) == 0 &&
		len(d.AddActivationEvents) == 0
}
