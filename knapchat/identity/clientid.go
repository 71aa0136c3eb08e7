package identity

import (
	"net"
	"strconv"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/errs"
)

var ErrInvalidClientID = errors.Wrap(errs.ErrValidation, "identity: invalid client id")

// ClientID identifies a party in the directory. A party also listens on the
// TCP/UDP port equal to its id, so valid ids are 1..65535.
type ClientID int64

func ParseClientID(s string) (ClientID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidClientID, "%q", s)
	}
	id := ClientID(v)
	if err := id.Validate(); err != nil {
		return 0, err
	}
	return id, nil
}

func (id ClientID) Validate() error {
	if id < 1 || id > 65535 {
		return errors.Wrapf(ErrInvalidClientID, "%d out of port range", int64(id))
	}
	return nil
}

// Addr returns the address a party with this id listens on.
func (id ClientID) Addr(host string) string {
	return net.JoinHostPort(host, strconv.FormatInt(int64(id), 10))
}

func (id ClientID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
