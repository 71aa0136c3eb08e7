// Package config is the knapchat configuration schema.
//
// Values come from a viper instance, so they can be set in a config file,
// through KNAPCHAT_* environment variables or by command line flags bound to
// the same keys.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/TheusHen/knapchat/knapchat/crypto"
	"github.com/TheusHen/knapchat/knapchat/crypto/knapsack"
	"github.com/TheusHen/knapchat/knapchat/errs"
)

// EnvPrefix prefixes environment overrides, e.g. KNAPCHAT_KEYSERVER_ADDR.
const EnvPrefix = "KNAPCHAT"

// Keys
const (
	KeyKeyserverAddr      = "keyserver.addr"
	KeyKeyserverAdminAddr = "keyserver.admin_addr"
	KeyKeyserverTimeout   = "keyserver.timeout"
	KeyPeerHost           = "peer.host"
	KeyPeerTransport      = "peer.transport"
	KeyKnapsackBits       = "knapsack.bits"
	KeyHalfKeyMin         = "handshake.half_key_min"
	KeyHalfKeyMax         = "handshake.half_key_max"
	KeyDerivation         = "handshake.derivation"
	KeyIOTimeout          = "handshake.io_timeout"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
)

const (
	TransportTCP  = "tcp"
	TransportQUIC = "quic"
)

var ErrInvalid = errors.Wrap(errs.ErrValidation, "config: invalid value")

type Keyserver struct {
	Addr string
	// AdminAddr enables the HTTP admin view when set.
	AdminAddr string
	// Timeout bounds one directory exchange. Zero means no limit.
	Timeout time.Duration
}

type Peer struct {
	Host      string
	Transport string
}

type Handshake struct {
	HalfKeys   crypto.HalfKeyRange
	Derivation crypto.Derivation
	// IOTimeout bounds each peer send and receive. Zero blocks forever.
	IOTimeout time.Duration
}

type Log struct {
	Level  string
	Format string
}

// Config is the full configuration.
type Config struct {
	Keyserver Keyserver
	Peer      Peer
	KeyBits   int
	Handshake Handshake
	Log       Log
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Keyserver: Keyserver{Addr: "localhost:9000", Timeout: 10 * time.Second},
		Peer:      Peer{Host: "localhost", Transport: TransportTCP},
		KeyBits:   knapsack.DefaultBits,
		Handshake: Handshake{
			HalfKeys:   crypto.DefaultHalfKeyRange,
			Derivation: crypto.DerivationLegacy,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// SetDefaults registers Default on vip and enables environment overrides.
func SetDefaults(vip *viper.Viper) {
	d := Default()
	vip.SetDefault(KeyKeyserverAddr, d.Keyserver.Addr)
	vip.SetDefault(KeyKeyserverAdminAddr, d.Keyserver.AdminAddr)
	vip.SetDefault(KeyKeyserverTimeout, d.Keyserver.Timeout)
	vip.SetDefault(KeyPeerHost, d.Peer.Host)
	vip.SetDefault(KeyPeerTransport, d.Peer.Transport)
	vip.SetDefault(KeyKnapsackBits, d.KeyBits)
	vip.SetDefault(KeyHalfKeyMin, d.Handshake.HalfKeys.Min)
	vip.SetDefault(KeyHalfKeyMax, d.Handshake.HalfKeys.Max)
	vip.SetDefault(KeyDerivation, string(d.Handshake.Derivation))
	vip.SetDefault(KeyIOTimeout, d.Handshake.IOTimeout)
	vip.SetDefault(KeyLogLevel, d.Log.Level)
	vip.SetDefault(KeyLogFormat, d.Log.Format)

	vip.SetEnvPrefix(EnvPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()
}

// Load reads and validates the configuration from vip.
func Load(vip *viper.Viper) (Config, error) {
	c := Config{
		Keyserver: Keyserver{
			Addr:      vip.GetString(KeyKeyserverAddr),
			AdminAddr: vip.GetString(KeyKeyserverAdminAddr),
			Timeout:   vip.GetDuration(KeyKeyserverTimeout),
		},
		Peer: Peer{
			Host:      vip.GetString(KeyPeerHost),
			Transport: strings.ToLower(vip.GetString(KeyPeerTransport)),
		},
		KeyBits: vip.GetInt(KeyKnapsackBits),
		Handshake: Handshake{
			HalfKeys: crypto.HalfKeyRange{
				Min: vip.GetUint64(KeyHalfKeyMin),
				Max: vip.GetUint64(KeyHalfKeyMax),
			},
			Derivation: crypto.Derivation(strings.ToLower(vip.GetString(KeyDerivation))),
			IOTimeout:  vip.GetDuration(KeyIOTimeout),
		},
		Log: Log{
			Level:  vip.GetString(KeyLogLevel),
			Format: strings.ToLower(vip.GetString(KeyLogFormat)),
		},
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Keyserver.Addr == "" {
		return errors.Wrapf(ErrInvalid, "%s must be set", KeyKeyserverAddr)
	}
	if c.Keyserver.Timeout < 0 || c.Handshake.IOTimeout < 0 {
		return errors.Wrap(ErrInvalid, "timeouts cannot be negative")
	}
	if c.Peer.Host == "" {
		return errors.Wrapf(ErrInvalid, "%s must be set", KeyPeerHost)
	}
	switch c.Peer.Transport {
	case TransportTCP, TransportQUIC:
	default:
		return errors.Wrapf(ErrInvalid, "%s %q", KeyPeerTransport, c.Peer.Transport)
	}
	if c.KeyBits < knapsack.DefaultBits {
		return errors.Wrapf(ErrInvalid, "%s must be at least %d, got %d", KeyKnapsackBits, knapsack.DefaultBits, c.KeyBits)
	}
	if err := c.Handshake.HalfKeys.Validate(); err != nil {
		return err
	}
	switch c.Handshake.Derivation {
	case crypto.DerivationLegacy, crypto.DerivationHKDF:
	default:
		return errors.Wrapf(crypto.ErrDerivation, "%q", c.Handshake.Derivation)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(ErrInvalid, "%s: %v", KeyLogLevel, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Wrapf(ErrInvalid, "%s %q", KeyLogFormat, c.Log.Format)
	}
	return nil
}

// Logger builds a logrus logger for the configured level and format.
func (l Log) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalid, "%s: %v", KeyLogLevel, err)
	}
	log := logrus.New()
	log.SetLevel(level)
	if l.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
