// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package communication

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v3"
	log "github.com/sirupsen/logrus"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/wire"
)

// DefaultConfigPath is where LoadConnConfig looks when no path is given.
const DefaultConfigPath = "./config/connConfig.json"

const (
	frameData byte = iota + 1
	frameSelect
	frameClose

	headerSize = 5
	// maxFrame bounds a frame payload.
	maxFrame = wire.MaxEnvelopeSize
)

// LocalConfig is the run configuration of one process.
type LocalConfig struct {
	//Side played by this process: both, device or reader.
	Side string `json:"side"`
	//Variant of the protocol, e.g. ppets-abc.
	Variant string `json:"variant"`
	//Stage is the last phase to run: echo, setup, register, issue, validate or all.
	Stage string `json:"stage"`
	//Params is the ordered protocol parameter list [passOverride, rounds, securityBits, freshTicketPerRound].
	Params []string `json:"params"`
	//Mnemonic makes the run reproducible. Benchmarks only.
	Mnemonic string `json:"mnemonic"`
	//TrustKey is the hex encoded authority key pinned by a device.
	TrustKey string `json:"trustKey"`

	//LocalAddr is the address a reader listens on.
	LocalAddr string `json:"localAddr"`
	//PeerAddr is the address a device dials.
	PeerAddr string `json:"peerAddr"`
	//Represents the file path to the certificate authority (CA) file.
	CaPath string `json:"caPath"`
	//Represents the file path to the client certificate file.
	ClientCertPath string `json:"clientCertPath"`
	//Represents the file path to the client private key file.
	ClientKeyPath string `json:"clientKeyPath"`
	//Represents the file path to the server certificate file.
	ServerCertPath string `json:"serverCertPath"`
	//Represents the file path to the server private key file.
	ServerKeyPath string `json:"serverKeyPath"`
	//Represents the timeout duration in seconds for network operations.
	TimeOutSecond int `json:"timeOutSecond"`

	//Runs is the number of independent runs executed concurrently on side both.
	Runs int `json:"runs"`
	//ReportAddr serves the timing report over HTTP when set.
	ReportAddr string `json:"reportAddr"`
	//ReportPath saves the timing report when set.
	ReportPath string `json:"reportPath"`
}

// LoadConnConfig reads the configuration stored at path, DefaultConfigPath when empty.
func LoadConnConfig(path string) (LocalConfig, error) {
	var cfg LocalConfig
	if path == "" {
		path = DefaultConfigPath
	}
	jsonFile, err := os.Open(path)
	if err != nil {
		log.Errorf("fail open %s", path)
		return cfg, err
	}
	log.Infof("successfully open %s", path)
	defer jsonFile.Close()

	// Read the contents of the file
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return cfg, err
	}
	if err = json.Unmarshal(byteValue, &cfg); err != nil {
		log.Errorf("fail unmarshal %s", path)
		return cfg, err
	}
	log.Infoln("done unmarshal connConfig")
	return cfg, nil
}

// Timeout is the deadline of every network operation.
func (c LocalConfig) Timeout() time.Duration {
	if c.TimeOutSecond <= 0 {
		return transport.DefaultPipeTimeout
	}
	return time.Duration(c.TimeOutSecond) * time.Second
}

// Trust decodes TrustKey, nil when it is not set.
func (c LocalConfig) Trust() (*secp256k1.PublicKey, error) {
	if c.TrustKey == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(c.TrustKey)
	if err != nil {
		return nil, fmt.Errorf("trust key: %w", err)
	}
	return secp256k1.ParsePubKey(raw)
}

// LoadCertPool function loads a certificate authority (CA) file and creates a new x509.CertPool
func LoadCertPool(caFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("pool append certs from pem failed")
	}
	return pool, nil
}

// LoadTLSConfig function loads a TLS configuration by loading a certificate authority (CA) file, a certificate file, and a key file
func LoadTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	pool, err := LoadCertPool(caFile)
	if err != nil {
		return nil, fmt.Errorf("load cert pool from (%s): %v", caFile, err)
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load x509 key pair from (%s, %s): %v", certFile, keyFile, err)
	}
	cfg := &tls.Config{
		RootCAs:      pool,
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	return cfg, nil
}

// Connect builds the transport of the configured side: a reader listens on
// LocalAddr, a device dials PeerAddr. TLS is used when CaPath is set.
func (c LocalConfig) Connect(reader bool) (*Conn, error) {
	var (
		tlsConfig *tls.Config
		err       error
	)
	if c.CaPath != "" {
		certFile, keyFile := c.ClientCertPath, c.ClientKeyPath
		if reader {
			certFile, keyFile = c.ServerCertPath, c.ServerKeyPath
		}
		if tlsConfig, err = LoadTLSConfig(c.CaPath, certFile, keyFile); err != nil {
			log.Errorln("fail load TLS config")
			return nil, err
		}
	}
	if reader {
		return Listen(c.LocalAddr, tlsConfig, c.Timeout())
	}
	return Dial(c.PeerAddr, tlsConfig, c.Timeout()), nil
}

// Conn is a transport over a stream connection.
//
// Every payload travels in a frame made of a kind byte, a 4 byte big-endian
// length and the payload. Select sends the application identifier, and the
// peer checks it against its own selection before the next payload.
type Conn struct {
	mtx     sync.Mutex
	connect func() (net.Conn, error)
	// closer is the listener of a reader, nil on a device.
	closer  io.Closer
	conn    net.Conn
	timeout time.Duration
	aid     []byte
}

// Dial returns the device end, which connects to addr on Open.
// A nil tlsConfig uses plain TCP.
func Dial(addr string, tlsConfig *tls.Config, timeout time.Duration) *Conn {
	dialer := &net.Dialer{Timeout: timeout}
	return &Conn{
		timeout: timeout,
		connect: func() (net.Conn, error) {
			log.Infof("dial addr = %v", addr)
			if tlsConfig == nil {
				return dialer.Dial("tcp", addr)
			}
			return tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
		},
	}
}

// Listen returns the reader end, which accepts one device on every Open.
func Listen(addr string, tlsConfig *tls.Config, timeout time.Duration) (*Conn, error) {
	var (
		ln  net.Listener
		err error
	)
	if tlsConfig == nil {
		ln, err = net.Listen("tcp", addr)
	} else {
		ln, err = tls.Listen("tcp", addr, tlsConfig)
	}
	if err != nil {
		return nil, err
	}
	log.Infof("listening on %v", ln.Addr())
	return NewServer(ln, timeout), nil
}

// NewServer wraps ln.
func NewServer(ln net.Listener, timeout time.Duration) *Conn {
	type deadliner interface{ SetDeadline(time.Time) error }
	return &Conn{
		timeout: timeout,
		closer:  ln,
		connect: func() (net.Conn, error) {
			if d, ok := ln.(deadliner); ok {
				_ = d.SetDeadline(time.Now().Add(timeout))
			}
			return ln.Accept()
		},
	}
}

// Addr is the listening address of a reader end, nil on a device.
func (c *Conn) Addr() net.Addr {
	if ln, ok := c.closer.(net.Listener); ok {
		return ln.Addr()
	}
	return nil
}

// Shutdown closes the connection and the listener.
func (c *Conn) Shutdown() error {
	_ = c.Close()
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

func (c *Conn) current() (net.Conn, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.conn == nil {
		return nil, transport.NewError("io", transport.CodeNotOpen, nil)
	}
	return c.conn, nil
}

func wrap(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return transport.NewError(op, transport.CodeTimeout, err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return transport.NewError(op, transport.CodeClosed, err)
	}
	return transport.NewError(op, transport.CodeUnknown, err)
}

// Open implements transport.Transport.
func (c *Conn) Open() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.conn != nil {
		return nil
	}
	conn, err := c.connect()
	if err != nil {
		log.Errorf("fail open connection: %v", err)
		return wrap("open", err)
	}
	c.conn = conn
	c.aid = nil
	log.Infof("connected to %v", conn.RemoteAddr())
	return nil
}

// Close implements transport.Transport. The peer is told before the connection goes down.
func (c *Conn) Close() error {
	c.mtx.Lock()
	conn := c.conn
	c.conn = nil
	c.mtx.Unlock()
	if conn == nil {
		return transport.NewError("close", transport.CodeNotOpen, nil)
	}
	_ = writeFrame(conn, c.timeout, frameClose, nil)
	if err := conn.Close(); err != nil {
		return wrap("close", err)
	}
	return nil
}

// Select implements transport.Transport.
func (c *Conn) Select(aid []byte) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	if len(aid) == 0 {
		return transport.NewError("select", transport.CodeNotFound, nil)
	}
	c.mtx.Lock()
	c.aid = append([]byte(nil), aid...)
	c.mtx.Unlock()
	if err = writeFrame(conn, c.timeout, frameSelect, aid); err != nil {
		return wrap("select", err)
	}
	return nil
}

// Put implements transport.Transport.
func (c *Conn) Put(data []byte) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	if len(data) > maxFrame {
		return transport.NewError("put", transport.CodeWrongLength, fmt.Errorf("payload of %d bytes", len(data)))
	}
	if err = writeFrame(conn, c.timeout, frameData, data); err != nil {
		return wrap("put", err)
	}
	return nil
}

// Get implements transport.Transport.
func (c *Conn) Get(maxLength int) ([]byte, error) {
	conn, err := c.current()
	if err != nil {
		return nil, err
	}
	for {
		kind, payload, err := readFrame(conn, c.timeout)
		if err != nil {
			return nil, err
		}
		switch kind {
		case frameSelect:
			c.mtx.Lock()
			aid := c.aid
			c.mtx.Unlock()
			if !bytes.Equal(aid, payload) {
				return nil, transport.NewError("get", transport.CodeNotFound, fmt.Errorf("peer selected %X", payload))
			}
		case frameClose:
			return nil, transport.NewError("get", transport.CodeClosed, nil)
		case frameData:
			if maxLength > 0 && len(payload) > maxLength {
				return nil, transport.NewError("get", transport.CodeWrongLength, fmt.Errorf("payload of %d bytes exceeds %d", len(payload), maxLength))
			}
			return payload, nil
		default:
			return nil, transport.NewError("get", transport.CodeUnknown, fmt.Errorf("frame kind %d", kind))
		}
	}
}

func writeFrame(conn net.Conn, timeout time.Duration, kind byte, payload []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	buf := make([]byte, headerSize, headerSize+len(payload))
	buf[0] = kind
	binary.BigEndian.PutUint32(buf[1:], uint32(len(payload)))
	_, err := conn.Write(append(buf, payload...))
	return err
}

func readFrame(conn net.Conn, timeout time.Duration) (byte, []byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	var header [headerSize]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return 0, nil, wrap("get", err)
	}
	size := binary.BigEndian.Uint32(header[1:])
	if size > maxFrame {
		return 0, nil, transport.NewError("get", transport.CodeWrongLength, fmt.Errorf("frame of %d bytes", size))
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return 0, nil, wrap("get", err)
	}
	return header[0], payload, nil
}
