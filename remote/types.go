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

package remote

import (
	"context"
	"io"
	"net/url"
)

// ExecServer is the opaque handle produced by resolving one hop of an
// authority chain. It is threaded into the resolution of the next hop.
type ExecServer any

// ResolveContext is passed to every resolver call.
type ResolveContext struct {
	// ResolveAttempt increases with every resolution attempt of a session.
	ResolveAttempt int
	// ExecServer is the handle produced by the previous hop, nil for the first one.
	ExecServer ExecServer
}

// Resolver resolves authorities of a given prefix into connection details.
type Resolver interface {
	Resolve(ctx context.Context, authority string, rc ResolveContext) (*ResolverResult, error)
}

// ExecServerResolver is implemented by resolvers that can act as an
// intermediate hop of an authority chain.
type ExecServerResolver interface {
	ResolveExecServer(ctx context.Context, authority string, rc ResolveContext) (ExecServer, error)
}

// CanonicalURIResolver is implemented by resolvers able to canonicalize
// workspace URIs. A nil result means the URI is already canonical.
type CanonicalURIResolver interface {
	CanonicalURI(ctx context.Context, uri *url.URL) (*url.URL, error)
}

// TunnelProvider is implemented by resolvers that can open tunnels once
// their authority is resolved.
type TunnelProvider interface {
	TunnelFactory() TunnelFactory
}

// TunnelFactory opens a tunnel to the given remote address.
type TunnelFactory func(ctx context.Context, remoteHost string, remotePort int) (io.Closer, error)

// ConnectionFactory opens a managed connection to the remote side.
type ConnectionFactory func(ctx context.Context) (io.ReadWriteCloser, error)

// ResolvedAuthority is the connection part of a resolver result. It is
// either a *HostPortAuthority or a *ManagedAuthority.
type ResolvedAuthority interface {
	isResolvedAuthority()
}

// HostPortAuthority is reached through a plain host and port.
type HostPortAuthority struct {
	Host            string
	Port            int
	ConnectionToken string
}

// ManagedAuthority is reached through connections made by the resolver itself.
type ManagedAuthority struct {
	MakeConnection  ConnectionFactory
	ConnectionToken string
}

func (*HostPortAuthority) isResolvedAuthority() {}
func (*ManagedAuthority) isResolvedAuthority()  {}

// AuthenticationSession identifies the session used to initialize extensions.
type AuthenticationSession struct {
	ID         string `json:"id"`
	ProviderID string `json:"providerId"`
}

// TunnelDescription describes a tunnel already opened by the environment.
type TunnelDescription struct {
	RemoteHost   string `json:"remoteHost"`
	RemotePort   int    `json:"remotePort"`
	LocalAddress string `json:"localAddress"`
	Privacy      string `json:"privacy,omitempty"`
	Protocol     string `json:"protocol,omitempty"`
}

// TunnelFeatures advertises what the resolver supports for tunnels.
// A nil Protocol means supported.
type TunnelFeatures struct {
	Elevation      bool     `json:"elevation"`
	Public         bool     `json:"public"`
	PrivacyOptions []string `json:"privacyOptions,omitempty"`
	Protocol       *bool    `json:"protocol,omitempty"`
}

// ResolverResult is what a resolver returns for the final hop.
type ResolverResult struct {
	Authority ResolvedAuthority

	ExtensionHostEnv      map[string]string
	IsTrusted             bool
	AuthenticationSession *AuthenticationSession

	EnvironmentTunnels []TunnelDescription
	TunnelFeatures     *TunnelFeatures
}

// Connection tells the caller how to reach the resolved authority.
// It is either ManagedConnection or WebSocketConnection.
type Connection interface {
	isConnection()
}

// ManagedConnection refers to the socket factory registered under ID.
type ManagedConnection struct {
	ID int `json:"id"`
}

// WebSocketConnection is a direct host and port connection.
type WebSocketConnection struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (ManagedConnection) isConnection()   {}
func (WebSocketConnection) isConnection() {}

// Authority is the resolved authority of a chain.
type Authority struct {
	Authority       string     `json:"authority"`
	ConnectTo       Connection `json:"connectTo"`
	ConnectionToken string     `json:"connectionToken,omitempty"`
}

// Options carries the non-connection part of a resolver result.
type Options struct {
	ExtensionHostEnv      map[string]string      `json:"extensionHostEnv,omitempty"`
	IsTrusted             bool                   `json:"isTrusted"`
	AuthenticationSession *AuthenticationSession `json:"authenticationSession,omitempty"`
}

// TunnelFeaturesInfo is TunnelFeatures with every field resolved.
type TunnelFeaturesInfo struct {
	Elevation      bool     `json:"elevation"`
	PrivacyOptions []string `json:"privacyOptions,omitempty"`
	Protocol       bool     `json:"protocol"`
}

// TunnelInformation is the tunnel metadata merged into a resolution.
type TunnelInformation struct {
	EnvironmentTunnels []TunnelDescription `json:"environmentTunnels,omitempty"`
	Features           *TunnelFeaturesInfo `json:"features,omitempty"`
}

// Resolution is the successful outcome of resolving a chain.
type Resolution struct {
	Authority         Authority         `json:"authority"`
	Options           Options           `json:"options"`
	TunnelInformation TunnelInformation `json:"tunnelInformation"`
}

// Response is the discriminated outcome handed back to the caller of a
// resolution request: Type is either "ok" or "error".
type Response struct {
	Type  string         `json:"type"`
	Value *Resolution    `json:"value,omitempty"`
	Error *ResponseError `json:"error,omitempty"`
}

// ResponseError is the typed failure of a resolution request.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

const (
	// ResponseOK marks a successful Response.
	ResponseOK = "ok"
	// ResponseErr marks a failed Response.
	ResponseErr = "error"
)
