// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2016 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// dsn.go implements Config, the connection parameters spec §6 requires
// every entry point to accept, plus a data-source-name string parser
// in the teacher's traditional
// "user:password@proto(address)/dbname?param=value" grammar. The
// teacher's retrieved file subset does not include this file; it is
// reconstructed in the same idiom because every command in the spec
// needs somewhere to read its settings from.
package mysql

import (
	"bytes"
	"crypto/rsa"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var errInvalidDSNUnescaped = errors.New("invalid DSN: did you forget to escape a param value?")
var errInvalidDSNAddr = errors.New("invalid DSN: network address not terminated (missing closing brace)")
var errInvalidDSNNoSlash = errors.New("invalid DSN: missing the slash separating the database name")
var errInvalidDSNPort = errors.New("invalid DSN: network address had an invalid port")

// Config holds the connection parameters this engine's entry points
// accept (spec §6). A Config obtained from ParseDSN is safe to Clone
// and mutate before use; it must not be mutated concurrently with a
// live Connect.
type Config struct {
	User   string // username
	Passwd string // password
	Net    string // network type, e.g. "tcp", "unix"
	Addr   string // network address, e.g. "127.0.0.1:3306"
	DBName string // initial schema to select, empty for none

	Params    map[string]string // session variables set right after connect (spec §6)
	Collation string            // connection collation

	Loc             *time.Location // not read by the value decoders: DATE/DATETIME decode to Date/DateTime, which carry no location
	MaxAllowedPacket int           // 0 keeps the channel's limit at maxPacketSize; the server is not queried
	ServerPubKey    *rsa.PublicKey // pinned RSA key, bypasses the public-key request (SPEC_FULL §4.4)
	TLSConfig       *tls.Config    // non-nil requests a TLS-wrapped connection (spec §4.5)

	Timeout      time.Duration // dial timeout
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	AllowFallbackToPlainRSA bool // permit non-TLS caching_sha2_password full-auth via RSA (SPEC_FULL §4.4 Open Question)
	AllowNativePasswords    bool
	AllowCleartextPasswords bool
	ClientFoundRows         bool
	ColumnsWithAlias        bool
	InterpolateParams       bool
	MultiStatements         bool
	ParseTime               bool
	RejectReadOnly          bool
	CheckConnLiveness       bool
}

// NewConfig returns a Config populated with the defaults spec §6
// mandates for entry points that do not override them.
func NewConfig() *Config {
	return &Config{
		Collation:               defaultCollation,
		Loc:                     time.UTC,
		MaxAllowedPacket:        0,
		AllowNativePasswords:    true,
		AllowFallbackToPlainRSA: true,
		CheckConnLiveness:       true,
	}
}

// Clone returns a deep copy of cfg.
func (cfg *Config) Clone() *Config {
	c := *cfg
	if cfg.Params != nil {
		c.Params = make(map[string]string, len(cfg.Params))
		for k, v := range cfg.Params {
			c.Params[k] = v
		}
	}
	return &c
}

func (cfg *Config) normalize() error {
	if cfg.Net == "" {
		cfg.Net = "tcp"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:3306"
	}
	if cfg.Collation == "" {
		cfg.Collation = defaultCollation
	}
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	if _, ok := collations[cfg.Collation]; !ok {
		return fmt.Errorf("unknown collation %q", cfg.Collation)
	}
	return nil
}

// FormatDSN reassembles cfg into a DSN string accepted by ParseDSN.
func (cfg *Config) FormatDSN() string {
	var buf bytes.Buffer

	if cfg.User != "" {
		buf.WriteString(cfg.User)
		if cfg.Passwd != "" {
			buf.WriteByte(':')
			buf.WriteString(cfg.Passwd)
		}
		buf.WriteByte('@')
	}

	if cfg.Net != "" {
		buf.WriteString(cfg.Net)
		buf.WriteByte('(')
		buf.WriteString(cfg.Addr)
		buf.WriteByte(')')
	}

	buf.WriteByte('/')
	buf.WriteString(cfg.DBName)

	first := true
	writeParam := func(k, v string) {
		if first {
			buf.WriteByte('?')
			first = false
		} else {
			buf.WriteByte('&')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(v))
	}

	if cfg.Collation != "" && cfg.Collation != defaultCollation {
		writeParam("collation", cfg.Collation)
	}
	if cfg.ParseTime {
		writeParam("parseTime", "true")
	}
	if cfg.MultiStatements {
		writeParam("multiStatements", "true")
	}
	for k, v := range cfg.Params {
		writeParam(k, v)
	}

	return buf.String()
}

// ParseDSN parses a MySQL data-source-name of the form
//
//	[user[:password]@][net[(addr)]]/dbname[?param1=value1&paramN=valueN]
//
// (spec §6), grounded on the teacher's implied mc.cfg.* fields.
func ParseDSN(dsn string) (cfg *Config, err error) {
	cfg = NewConfig()

	foundSlash := false
	for i := len(dsn) - 1; i >= 0; i-- {
		if dsn[i] == '/' {
			foundSlash = true
			var j, k int

			for j = i; j >= 0; j-- {
				if dsn[j] == '@' {
					dsnUnescape(dsn[k:j], &cfg.User, &cfg.Passwd)
					k = j + 1
					break
				}
			}

			for k = j; k >= 0; k-- {
				if dsn[k] == ')' {
					if dsn[j] != '@' && k > 0 {
						return nil, errInvalidDSNUnescaped
					}
					break
				}
			}

			if err = parseDSNAddr(dsn[:i+1], cfg, j, k); err != nil {
				return nil, err
			}

			dbname := dsn[i+1:]
			if idx := strings.IndexByte(dbname, '?'); idx >= 0 {
				if err = parseDSNParams(cfg, dbname[idx+1:]); err != nil {
					return nil, err
				}
				dbname = dbname[:idx]
			}
			cfg.DBName = dbname

			break
		}
	}

	if !foundSlash && len(dsn) > 0 {
		return nil, errInvalidDSNNoSlash
	}

	if err = cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func dsnUnescape(s string, user, passwd *string) {
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		*user = s[:idx]
		*passwd = s[idx+1:]
	} else {
		*user = s
	}
}

func parseDSNAddr(dsn string, cfg *Config, atIdx, closeIdx int) error {
	rest := dsn
	if atIdx >= 0 {
		rest = dsn[atIdx+1:]
	}
	rest = strings.TrimSuffix(rest, "/")

	if rest == "" {
		return nil
	}

	if idx := strings.IndexByte(rest, '('); idx >= 0 {
		if !strings.HasSuffix(rest, ")") {
			return errInvalidDSNAddr
		}
		cfg.Net = rest[:idx]
		cfg.Addr = rest[idx+1 : len(rest)-1]
	} else {
		cfg.Net = "tcp"
		cfg.Addr = rest
	}

	if cfg.Net == "tcp" && cfg.Addr != "" {
		if _, port, err := net.SplitHostPort(cfg.Addr); err == nil {
			if _, err := strconv.Atoi(port); err != nil {
				return errInvalidDSNPort
			}
		} else if strings.Contains(err.Error(), "missing port") {
			cfg.Addr = net.JoinHostPort(cfg.Addr, "3306")
		}
	}
	return nil
}

func parseDSNParams(cfg *Config, params string) (err error) {
	for _, v := range strings.Split(params, "&") {
		key, value, found := strings.Cut(v, "=")
		if !found {
			continue
		}

		value, err = url.QueryUnescape(value)
		if err != nil {
			return err
		}

		switch key {
		case "collation":
			cfg.Collation = value
		case "loc":
			cfg.Loc, err = time.LoadLocation(value)
			if err != nil {
				return err
			}
		case "timeout":
			cfg.Timeout, err = time.ParseDuration(value)
			if err != nil {
				return err
			}
		case "readTimeout":
			cfg.ReadTimeout, err = time.ParseDuration(value)
			if err != nil {
				return err
			}
		case "writeTimeout":
			cfg.WriteTimeout, err = time.ParseDuration(value)
			if err != nil {
				return err
			}
		case "maxAllowedPacket":
			cfg.MaxAllowedPacket, err = strconv.Atoi(value)
			if err != nil {
				return err
			}
		case "parseTime":
			cfg.ParseTime, err = strconv.ParseBool(value)
			if err != nil {
				return err
			}
		case "clientFoundRows":
			cfg.ClientFoundRows, err = strconv.ParseBool(value)
			if err != nil {
				return err
			}
		case "columnsWithAlias":
			cfg.ColumnsWithAlias, err = strconv.ParseBool(value)
			if err != nil {
				return err
			}
		case "interpolateParams":
			cfg.InterpolateParams, err = strconv.ParseBool(value)
			if err != nil {
				return err
			}
		case "multiStatements":
			cfg.MultiStatements, err = strconv.ParseBool(value)
			if err != nil {
				return err
			}
		case "rejectReadOnly":
			cfg.RejectReadOnly, err = strconv.ParseBool(value)
			if err != nil {
				return err
			}
		case "allowNativePasswords":
			cfg.AllowNativePasswords, err = strconv.ParseBool(value)
			if err != nil {
				return err
			}
		case "allowCleartextPasswords":
			cfg.AllowCleartextPasswords, err = strconv.ParseBool(value)
			if err != nil {
				return err
			}
		case "allowFallbackToPlainRSA":
			cfg.AllowFallbackToPlainRSA, err = strconv.ParseBool(value)
			if err != nil {
				return err
			}
		case "checkConnLiveness":
			cfg.CheckConnLiveness, err = strconv.ParseBool(value)
			if err != nil {
				return err
			}
		case "tls":
			switch value {
			case "true":
				cfg.TLSConfig = &tls.Config{}
			case "skip-verify":
				cfg.TLSConfig = &tls.Config{InsecureSkipVerify: true}
			case "false", "":
				cfg.TLSConfig = nil
			default:
				return fmt.Errorf("invalid value %q for tls parameter", value)
			}
		default:
			if cfg.Params == nil {
				cfg.Params = make(map[string]string)
			}
			cfg.Params[key] = value
		}
	}
	return nil
}
