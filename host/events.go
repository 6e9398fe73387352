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

package host

import (
	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/remote"
)

// Topics published on the host events stream.
const (
	TopicLifecycle            = "host.lifecycle"
	TopicWillActivate         = "extension.willActivate"
	TopicDidActivate          = "extension.didActivate"
	TopicActivationError      = "extension.activationError"
	TopicPerformanceMarks     = "host.performanceMarks"
	TopicRegistryChanged      = "host.registryChanged"
	TopicRemoteConnectionData = "host.remoteConnectionData"
)

// Stage is a step of the host lifecycle.
type Stage string

const (
	StageAlmostReady     Stage = "almostReady"
	StageReadyToStart    Stage = "readyToStart"
	StageReadyToRun      Stage = "readyToRun"
	StageEagerActivated  Stage = "eagerActivated"
	StageStartupFinished Stage = "startupFinished"
	StageTerminating     Stage = "terminating"
)

// LifecycleEvent is published on TopicLifecycle.
type LifecycleEvent struct {
	Stage  Stage
	Reason string
}

// WillActivateEvent is published on TopicWillActivate.
type WillActivateEvent struct {
	ID extension.Identifier
}

// DidActivateEvent is published on TopicDidActivate.
type DidActivateEvent struct {
	ID     extension.Identifier
	Times  extension.ActivationTimes
	Reason extension.ActivationReason
}

// ActivationErrorEvent is published on TopicActivationError.
type ActivationErrorEvent struct {
	ID                extension.Identifier
	Err               error
	MissingDependency *extension.Identifier
}

// RegistryChangedEvent is published on TopicRegistryChanged once a delta is applied.
type RegistryChangedEvent struct {
	Added   []extension.Identifier
	Removed []extension.Identifier
}

// RemoteConnectionData describes how the host reaches its remote authority.
type RemoteConnectionData struct {
	ConnectTo       remote.Connection
	ConnectionToken string
}
