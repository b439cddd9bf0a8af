// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// connection.go implements Conn (spec C3): dialing, the handshake
// orchestration, the context-cancellation watcher, and the small set
// of connection-level commands (Ping, Quit, Close). Grounded on
// zhglin-mysql/connector.go's connector.Connect and the well-known
// startWatcher/watchCancel/finish pattern used throughout
// go-sql-driver/mysql's conn.go, generalized to this module's own
// Transport/channel types instead of database/sql/driver.
package mysql

import (
	"context"
	"net"
	"strconv"
	"sync/atomic"
)

// Conn is a single connection to a MySQL server (spec C3). It is not
// safe for concurrent use by multiple goroutines: commands must be
// issued and drained one at a time (spec §5).
type Conn struct {
	cfg *Config
	nc  Transport
	c   *channel

	flags  clientFlag
	status statusFlag
	useTLS bool

	// openRows is the Rows currently streaming a resultset, if any. A
	// new command must not be issued while it is non-nil and not yet
	// drained (spec §5's ErrSyncViolation).
	openRows *Rows

	watching bool
	watcher  chan context.Context
	closech  chan struct{}
	finished chan<- struct{}
	canceled atomicError // set non-nil if the connection was canceled
	closed   atomicBool
}

// atomicError is a small compare-and-swap error box, grounded on
// go-sql-driver/mysql's atomic.go.
type atomicError struct {
	v atomic.Value
}

func (a *atomicError) Set(err error) {
	a.v.Store(err)
}

func (a *atomicError) Value() error {
	v := a.v.Load()
	if v == nil {
		return nil
	}
	return v.(error)
}

type atomicBool struct{ v int32 }

func (b *atomicBool) Set(value bool) {
	if value {
		atomic.StoreInt32(&b.v, 1)
	} else {
		atomic.StoreInt32(&b.v, 0)
	}
}
func (b *atomicBool) Load() bool { return atomic.LoadInt32(&b.v) != 0 }

// Dial establishes a new Conn to the server described by dsn (spec
// §6). It performs the full handshake before returning: the returned
// Conn is ready for immediate use.
func Dial(ctx context.Context, dsn string) (*Conn, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, cfg)
}

// Connect establishes a new Conn using cfg (spec §6/§4.5).
func Connect(ctx context.Context, cfg *Config) (*Conn, error) {
	cfg = cfg.Clone()
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	mc := &Conn{
		cfg:     cfg,
		closech: make(chan struct{}),
	}

	dctx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var nc net.Conn
	var err error
	if dial, ok := lookupDial(cfg.Net); ok {
		nc, err = dial(dctx, cfg.Addr)
	} else {
		nd := net.Dialer{Timeout: cfg.Timeout}
		nc, err = nd.DialContext(dctx, cfg.Net, cfg.Addr)
	}
	if err != nil {
		return nil, err
	}
	if tc, ok := nc.(*net.TCPConn); ok {
		if err := tc.SetKeepAlive(true); err != nil {
			nc.Close()
			return nil, err
		}
	}
	mc.nc = nc

	mc.startWatcher()
	if err := mc.watchCancel(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	defer mc.finish()

	mc.c = newChannel(mc.nc)
	mc.c.readTimeout = cfg.ReadTimeout
	mc.c.writeTimeout = cfg.WriteTimeout

	if err := mc.handshake(); err != nil {
		mc.cleanup()
		return nil, err
	}

	return mc, nil
}

// handshake drives the full connection-establishment sequence (spec
// §4.5): parse the greeting, optionally upgrade to TLS, send the login
// request, run the auth-switch/more-data loop, and set session
// variables from cfg.Params.
func (mc *Conn) handshake() error {
	greeting, err := mc.c.read()
	if err != nil {
		return err
	}

	hs, err := readHandshakePacket(greeting)
	if err != nil {
		return err
	}

	plugin := hs.authPluginName
	if plugin == "" {
		plugin = defaultAuthPlugin
	}

	if err := checkRequiredCapabilities(hs.capabilities); err != nil {
		return err
	}

	useTLS := mc.cfg.TLSConfig != nil
	if useTLS && hs.capabilities&clientSSL == 0 {
		return ErrNoTLS
	}

	flags := negotiateCapabilities(hs.capabilities, mc.cfg, useTLS)

	if useTLS {
		charsetID := collations[mc.cfg.Collation]
		if err := writeSSLRequestPacket(mc.c, flags, charsetID); err != nil {
			return err
		}
		tlsConn, err := upgradeToTLS(mc.nc.(net.Conn), mc.cfg.TLSConfig)
		if err != nil {
			return err
		}
		mc.nc = tlsConn
		mc.c.nc = tlsConn
	}
	mc.useTLS = useTLS

	authResp, err := computeAuthResponse(plugin, hs.authData, mc.cfg.Passwd)
	if err != nil {
		return err
	}

	charsetID := collations[mc.cfg.Collation]
	if err := writeHandshakeResponsePacket(mc.c, mc.cfg, flags, charsetID, authResp, plugin); err != nil {
		return err
	}

	result, err := handleAuthResult(mc.c, mc.cfg, useTLS, plugin, hs.authData)
	if err != nil {
		return err
	}
	if len(result) > 0 && result[0] == iERR {
		return parseErrorPacket(result)
	}

	ok, err := parseOKPacket(result, flags)
	if err != nil {
		return err
	}
	mc.status = ok.statusFlags
	mc.flags = flags

	if mc.cfg.MaxAllowedPacket > 0 {
		mc.c.maxAllowedPacket = mc.cfg.MaxAllowedPacket
	}

	for k, v := range mc.cfg.Params {
		if err := mc.execSet(k, v); err != nil {
			return err
		}
	}
	return nil
}

// execSet issues "SET k=v" during connection setup, used for
// session-variable Params (spec §6). It is intentionally minimal:
// param values come from the caller's Config, not from user input, so
// this is not a SQL-injection surface.
func (mc *Conn) execSet(name, value string) error {
	_, err := mc.exec("SET " + name + "=" + strconv.Quote(value))
	return err
}

/******************************************************************************
*                          Cancellation watcher                               *
******************************************************************************/

// startWatcher starts a goroutine that races a context's Done channel
// against normal command completion, closing the underlying transport
// if the context is canceled before the command finishes (spec §5's
// cancellation model). Grounded on the well-known
// go-sql-driver/mysql watcher pattern; zhglin-mysql/connector.go calls
// the same three methods without including their bodies in the
// retrieved subset.
func (mc *Conn) startWatcher() {
	watcher := make(chan context.Context, 1)
	mc.watcher = watcher
	finished := make(chan struct{})
	mc.finished = finished
	go func() {
		for {
			var ctx context.Context
			select {
			case ctx = <-watcher:
			case <-mc.closech:
				return
			}

			select {
			case <-ctx.Done():
				mc.cancel(ctx.Err())
			case <-finished:
			case <-mc.closech:
				return
			}
		}
	}()
}

// watchCancel arms the watcher for the duration of one blocking
// operation. finish must be called when that operation completes. Every
// command-issuing call except Stmt.Close (which makes the same check
// itself) and Close (which tears the connection down) goes through it,
// so it also enforces that no new command starts while a previous
// resultset is still open (spec §5: "a second command initiated
// before the first's resultset is drained ... implementations MAY
// fail fast with sync_violation").
func (mc *Conn) watchCancel(ctx context.Context) error {
	if mc.openRows != nil && !mc.openRows.done {
		return ErrSyncViolation
	}
	if mc.watching {
		mc.cleanup()
		return ErrInvalidConn
	}
	if ctx.Done() == nil {
		return nil
	}

	mc.watching = true
	select {
	case mc.watcher <- ctx:
	case <-mc.closech:
		return ErrInvalidConn
	}
	return nil
}

// finish disarms the watcher after a blocking operation completes
// without cancellation.
func (mc *Conn) finish() {
	if !mc.watching {
		return
	}
	select {
	case mc.finished <- struct{}{}:
		mc.watching = false
	case <-mc.closech:
	}
}

// cancel is invoked by the watcher goroutine when ctx is done while a
// command is in flight; it forcibly severs the transport so the
// blocked read/write returns an error (spec §5).
func (mc *Conn) cancel(err error) {
	mc.canceled.Set(err)
	mc.cleanup()
}

// cleanup closes the transport and unblocks the watcher goroutine. It
// is idempotent.
func (mc *Conn) cleanup() {
	if mc.closed.Load() {
		return
	}
	mc.closed.Set(true)
	if mc.nc != nil {
		if err := mc.nc.Close(); err != nil {
			errLog.Print(err)
		}
	}
	close(mc.closech)
}

/******************************************************************************
*                           Connection-level commands                         *
******************************************************************************/

// Close sends COM_QUIT and releases the connection's resources. It is
// safe to call multiple times.
func (mc *Conn) Close() error {
	if mc.closed.Load() {
		return nil
	}

	err := mc.writeCommandPacket(comQuit)
	mc.cleanup()
	return err
}

// Ping verifies the connection is alive by sending COM_PING (spec §6).
func (mc *Conn) Ping(ctx context.Context) error {
	if err := mc.watchCancel(ctx); err != nil {
		return err
	}
	defer mc.finish()

	if err := mc.writeCommandPacket(comPing); err != nil {
		return err
	}
	_, err := mc.readResultOK()
	return err
}

// IsValid reports whether the connection is believed usable: neither
// closed nor poisoned (spec §7).
func (mc *Conn) IsValid() bool {
	return !mc.closed.Load() && mc.c.poisoned == nil && mc.canceled.Value() == nil
}
