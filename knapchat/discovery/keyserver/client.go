package keyserver

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/TheusHen/knapchat/knapchat/crypto/knapsack"
	"github.com/TheusHen/knapchat/knapchat/discovery"
	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/identity"
)

// ErrRejected is returned when the directory answers with an error status.
var ErrRejected = errors.Wrap(errs.ErrProtocol, "keyserver: request rejected")

// Client talks to a directory server. Each call uses its own connection.
type Client struct {
	addr    string
	timeout time.Duration
	log     *logrus.Entry
	dialer  net.Dialer
}

var _ discovery.Resolver = (*Client)(nil)

// NewClient returns a client for the server at addr. A positive timeout
// bounds each exchange in addition to any context deadline.
func NewClient(addr string, timeout time.Duration, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{addr: addr, timeout: timeout, log: log.WithField("component", "keyserver-client")}
}

func (c *Client) Register(ctx context.Context, id identity.ClientID, key knapsack.PublicKey) error {
	req := Request{Type: TypeRegister, ClientID: id, PublicKey: key}
	c.log.WithFields(logrus.Fields{"client_id": id, "public_key": key}).Info("Registering public key")
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	c.log.WithField("message", resp.Message).Info("Public key registered")
	return nil
}

func (c *Client) Retrieve(ctx context.Context, id identity.ClientID) (knapsack.PublicKey, error) {
	c.log.WithField("client_id", id).Info("Retrieving peer public key")
	resp, err := c.do(ctx, Request{Type: TypeRetrieve, ClientID: id})
	if err != nil {
		return nil, err
	}
	if len(resp.PublicKey) == 0 {
		return nil, errors.Wrapf(ErrRejected, "empty public key for %d", int64(id))
	}
	c.log.WithFields(logrus.Fields{"client_id": id, "public_key": resp.PublicKey}).Info("Peer public key retrieved")
	return resp.PublicKey, nil
}

func (c *Client) do(ctx context.Context, req Request) (Response, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return Response{}, errs.Mark(errors.Wrapf(err, "keyserver: dial %s", c.addr), errs.ErrNetwork)
	}
	defer conn.Close()

	if deadline, ok := c.deadline(ctx); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, errs.Mark(errors.Wrap(err, "keyserver: send"), errs.ErrNetwork)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, errs.Mark(errors.Wrap(err, "keyserver: receive"), errs.ErrNetwork)
	}

	if resp.Status != StatusSuccess {
		c.log.WithField("message", resp.Message).Error("Key server rejected request")
		if resp.Message == msgNotFound {
			return Response{}, errors.Wrapf(discovery.ErrNotFound, "%d", int64(req.ClientID))
		}
		return Response{}, errors.Wrap(ErrRejected, resp.Message)
	}
	return resp, nil
}

func (c *Client) deadline(ctx context.Context) (time.Time, bool) {
	d, ok := ctx.Deadline()
	if c.timeout > 0 {
		t := time.Now().Add(c.timeout)
		if !ok || t.Before(d) {
			return t, true
		}
	}
	return d, ok
}
