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

// Package remote resolves remote authority chains through the resolvers
// contributed by extensions.
package remote

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/internal/perf"
	"github.com/tochemey/exthost/internal/ticker"
	"github.com/tochemey/exthost/internal/xsync"
	"github.com/tochemey/exthost/log"
)

// ResolverEventPrefix prefixes the activation event that activates the
// extensions contributing a resolver.
const ResolverEventPrefix = "onResolveRemoteAuthority:"

var chainSeparator = regexp.MustCompile(`@|%40`)

// Activator activates the extensions listening on an event.
type Activator interface {
	ActivateByEvent(ctx context.Context, event string, startup bool) error
}

// Gate is waited on before any resolver gets activated.
type Gate interface {
	Wait(ctx context.Context) error
}

type hop struct {
	prefix    string
	authority string
	resolver  Resolver
}

// Coordinator resolves authority chains. A chain such as "b+1@a+1" is made
// of hops resolved right to left: every hop but the last yields an exec
// server that is handed to the next hop, and the last hop yields the
// connection details.
type Coordinator struct {
	activator       Activator
	gate            Gate
	resolvers       *xsync.Map[string, Resolver]
	sockets         *ManagedSockets
	tunnels         TunnelService
	marks           *perf.Marks
	logger          log.Logger
	waitingInterval time.Duration
	disposables     *extension.DisposableStore
}

// NewCoordinator creates a Coordinator activating resolvers through activator.
func NewCoordinator(activator Activator, opts ...Option) *Coordinator {
	c := &Coordinator{
		activator:       activator,
		resolvers:       xsync.NewMap[string, Resolver](),
		sockets:         NewManagedSockets(),
		tunnels:         NewTunnels(),
		marks:           perf.NewMarks(),
		logger:          log.DefaultLogger,
		waitingInterval: DefaultWaitingInterval,
		disposables:     extension.NewDisposableStore(),
	}
	for _, opt := range opts {
		opt.Apply(c)
	}
	return c
}

// RegisterResolver registers the resolver of an authority prefix. Disposing
// the returned value unregisters it.
func (c *Coordinator) RegisterResolver(prefix string, resolver Resolver) extension.Disposable {
	c.resolvers.Set(prefix, resolver)
	return extension.DisposableFunc(func() error {
		c.resolvers.Delete(prefix)
		return nil
	})
}

// ManagedSockets returns the registry managed connection factories are handed to.
func (c *Coordinator) ManagedSockets() *ManagedSockets {
	return c.sockets
}

// Resolve resolves the authority chain. Typed failures are returned as
// *errors.RemoteAuthorityError. When a multi-hop chain fails with an
// invalid authority, the whole chain is retried once as a single authority.
func (c *Coordinator) Resolve(ctx context.Context, chain string, attempt int) (*Resolution, error) {
	started := time.Now()
	logPrefix := func() string {
		return fmt.Sprintf("[resolveAuthority(%s,%d)][%dms] ", authorityPrefix(chain), attempt, time.Since(started).Milliseconds())
	}

	segments := chainSeparator.Split(chain, -1)
	slices.Reverse(segments)

	resolution, err := c.resolve(ctx, chain, segments, attempt, logPrefix)
	if err != nil && len(segments) > 1 && gerrors.IsRemoteAuthorityError(err, gerrors.RemoteAuthorityInvalidAuthority) {
		c.logger.Warnf("%sresolving nested authorities failed: %v", logPrefix(), err)
		resolution, err = c.resolve(ctx, chain, []string{chain}, attempt, logPrefix)
	}
	return resolution, err
}

// ResolveAuthority resolves the chain and wraps the outcome into a Response.
// Only errors that are not *errors.RemoteAuthorityError are returned as errors.
func (c *Coordinator) ResolveAuthority(ctx context.Context, chain string, attempt int) (*Response, error) {
	resolution, err := c.Resolve(ctx, chain, attempt)
	if err != nil {
		if typed, ok := gerrors.AsRemoteAuthorityError(err); ok {
			return &Response{
				Type: ResponseErr,
				Error: &ResponseError{
					Code:    string(typed.Code),
					Message: typed.Message,
					Detail:  typed.Detail,
				},
			}, nil
		}
		return nil, err
	}
	return &Response{Type: ResponseOK, Value: resolution}, nil
}

// GetRemoteExecServer returns the exec server of a single authority.
// It returns nil when no resolver is registered or the resolver cannot
// act as an exec server.
func (c *Coordinator) GetRemoteExecServer(ctx context.Context, authority string) (ExecServer, error) {
	_, resolver, err := c.activateAndGetResolver(ctx, authority)
	if err != nil || resolver == nil {
		return nil, err
	}
	execResolver, ok := resolver.(ExecServerResolver)
	if !ok {
		return nil, nil
	}
	return execResolver.ResolveExecServer(ctx, authority, ResolveContext{ResolveAttempt: 0})
}

// CanonicalURI canonicalizes uri through the resolver of authority. It
// returns nil when no resolver is registered and uri itself when the
// resolver cannot canonicalize it.
func (c *Coordinator) CanonicalURI(ctx context.Context, authority string, uri *url.URL) (*url.URL, error) {
	c.logger.Infof("canonical URI requested for authority (%s)", authorityPrefix(authority))
	_, resolver, err := c.activateAndGetResolver(ctx, authority)
	if err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, nil
	}
	canonical, ok := resolver.(CanonicalURIResolver)
	if !ok {
		return uri, nil
	}
	result, err := canonical.CanonicalURI(ctx, uri)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return uri, nil
	}
	return result, nil
}

// Dispose releases the tunnel factories installed by past resolutions.
func (c *Coordinator) Dispose() error {
	return c.disposables.Dispose()
}

func (c *Coordinator) resolve(ctx context.Context, chain string, segments []string, attempt int, logPrefix func() string) (*Resolution, error) {
	c.logger.Infof("%sactivating remote resolvers %s", logPrefix(), strings.Join(segments, " -> "))

	hops := make([]hop, len(segments))
	group := new(errgroup.Group)
	for i, segment := range segments {
		group.Go(func() error {
			c.logger.Infof("%sactivating resolver for %s...", logPrefix(), segment)
			prefix, resolver, err := c.activateAndGetResolver(ctx, segment)
			if err != nil {
				return err
			}
			if resolver == nil {
				c.logger.Errorf("%sno resolver for %s", logPrefix(), prefix)
				return gerrors.NewErrNoResolverFound(prefix)
			}
			hops[i] = hop{prefix: prefix, authority: segment, resolver: resolver}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	stop := ticker.Every(c.waitingInterval, func() {
		c.logger.Infof("%swaiting...", logPrefix())
	})
	defer stop()

	var (
		result     *ResolverResult
		execServer ExecServer
	)
	for i, h := range hops {
		rc := ResolveContext{ResolveAttempt: attempt, ExecServer: execServer}
		var err error
		if i == len(hops)-1 {
			result, err = c.resolveFinal(ctx, h, rc, logPrefix)
		} else {
			execServer, err = c.resolveExecServer(ctx, h, rc, logPrefix)
		}
		if err != nil {
			c.marks.Mark("code/extHost/didResolveAuthorityError/" + h.prefix)
			c.logger.Errorf("%sreturned an error: %v", logPrefix(), err)
			return nil, err
		}
	}

	resolution := &Resolution{
		Options: Options{
			ExtensionHostEnv:      result.ExtensionHostEnv,
			IsTrusted:             result.IsTrusted,
			AuthenticationSession: result.AuthenticationSession,
		},
		TunnelInformation: TunnelInformation{
			EnvironmentTunnels: result.EnvironmentTunnels,
			Features:           tunnelFeatures(result.TunnelFeatures),
		},
	}

	switch authority := result.Authority.(type) {
	case *ManagedAuthority:
		c.logger.Infof("%sreturned managed authority", logPrefix())
		// resolve attempts increase over a session so they are unique factory ids
		c.sockets.SetFactory(attempt, authority.MakeConnection)
		resolution.Authority = Authority{
			Authority:       chain,
			ConnectTo:       ManagedConnection{ID: attempt},
			ConnectionToken: authority.ConnectionToken,
		}
	case *HostPortAuthority:
		c.logger.Infof("%sreturned %s:%d", logPrefix(), authority.Host, authority.Port)
		resolution.Authority = Authority{
			Authority:       chain,
			ConnectTo:       WebSocketConnection{Host: authority.Host, Port: authority.Port},
			ConnectionToken: authority.ConnectionToken,
		}
	}
	return resolution, nil
}

func (c *Coordinator) resolveFinal(ctx context.Context, h hop, rc ResolveContext, logPrefix func() string) (*ResolverResult, error) {
	c.logger.Infof("%sinvoking final resolve()...", logPrefix())
	c.marks.Mark("code/extHost/willResolveAuthority/" + h.prefix)
	result, err := h.resolver.Resolve(ctx, h.authority, rc)
	if err != nil {
		return nil, err
	}
	if result == nil || result.Authority == nil {
		return nil, gerrors.NewRemoteAuthorityError(gerrors.RemoteAuthorityUnknown, fmt.Sprintf("resolver for %s returned no authority", h.prefix), nil)
	}
	c.marks.Mark("code/extHost/didResolveAuthorityOK/" + h.prefix)

	c.logger.Infof("%ssetting tunnel factory...", logPrefix())
	managed, _ := result.Authority.(*ManagedAuthority)
	disposable, err := c.tunnels.SetTunnelFactory(ctx, h.resolver, managed)
	if err != nil {
		return nil, err
	}
	if err := c.disposables.Add(disposable); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Coordinator) resolveExecServer(ctx context.Context, h hop, rc ResolveContext, logPrefix func() string) (ExecServer, error) {
	c.logger.Infof("%sinvoking resolveExecServer() for %s", logPrefix(), h.authority)
	c.marks.Mark("code/extHost/willResolveExecServer/" + h.prefix)

	var execServer ExecServer
	if execResolver, ok := h.resolver.(ExecServerResolver); ok {
		var err error
		if execServer, err = execResolver.ResolveExecServer(ctx, h.authority, rc); err != nil {
			return nil, err
		}
	}
	if execServer == nil {
		// the chain is broken
		return nil, gerrors.NewRemoteAuthorityError(gerrors.RemoteAuthorityNoResolverFound, fmt.Sprintf("exec server was not available for %s", h.authority), nil)
	}
	c.marks.Mark("code/extHost/didResolveExecServerOK/" + h.prefix)
	return execServer, nil
}

func (c *Coordinator) activateAndGetResolver(ctx context.Context, authority string) (string, Resolver, error) {
	index := strings.Index(authority, "+")
	if index == -1 {
		return "", nil, gerrors.NewErrInvalidAuthority(authority)
	}
	prefix := authority[:index]

	if c.gate != nil {
		if err := c.gate.Wait(ctx); err != nil {
			return prefix, nil, err
		}
	}
	if err := c.activator.ActivateByEvent(ctx, ResolverEventPrefix+prefix, false); err != nil {
		return prefix, nil, err
	}

	resolver, _ := c.resolvers.Get(prefix)
	return prefix, resolver, nil
}

func tunnelFeatures(features *TunnelFeatures) *TunnelFeaturesInfo {
	if features == nil {
		return nil
	}
	protocol := true
	if features.Protocol != nil {
		protocol = *features.Protocol
	}
	return &TunnelFeaturesInfo{
		Elevation:      features.Elevation,
		PrivacyOptions: features.PrivacyOptions,
		Protocol:       protocol,
	}
}

func authorityPrefix(authority string) string {
	if index := strings.Index(authority, "+"); index != -1 {
		return authority[:index]
	}
	return authority
}
