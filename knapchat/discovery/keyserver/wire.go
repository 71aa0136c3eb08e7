package keyserver

import (
	"bytes"
	"encoding/json"
	"math/big"

	"github.com/TheusHen/knapchat/knapchat/crypto/knapsack"
	"github.com/TheusHen/knapchat/knapchat/identity"
)

const (
	TypeRegister = "register"
	TypeRetrieve = "retrieve"

	StatusSuccess = "success"
	StatusError   = "error"
)

// Response texts. Clients match on msgNotFound to report discovery.ErrNotFound.
const (
	msgInvalidJSON     = "Invalid JSON request"
	msgInvalidRegister = "Invalid register request"
	msgNotIntList      = "Specified public key is not a list of ints"
	msgMissingID       = "client_id is missing or null"
	msgNotFound        = "client_id not found"
	msgInvalidType     = "Invalid request type"
	msgRegistered      = "Public key registered"
)

// Request is the client side of the exchange.
type Request struct {
	Type      string             `json:"type"`
	ClientID  identity.ClientID  `json:"client_id"`
	PublicKey knapsack.PublicKey `json:"public_key,omitempty"`
}

type Response struct {
	Status    string             `json:"status"`
	Message   string             `json:"message,omitempty"`
	PublicKey knapsack.PublicKey `json:"public_key,omitempty"`
}

func errorResponse(msg string) Response {
	return Response{Status: StatusError, Message: msg}
}

// rawRequest keeps fields undecoded so every validation rule can be applied
// to whatever the client actually sent.
type rawRequest map[string]any

func decodeRequest(data []byte) (rawRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var req rawRequest
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r rawRequest) typ() string {
	s, _ := r["type"].(string)
	return s
}

// clientID returns the id if it is a non-zero JSON integer.
func (r rawRequest) clientID() (identity.ClientID, bool) {
	n, ok := r["client_id"].(json.Number)
	if !ok {
		return 0, false
	}
	v, err := n.Int64()
	if err != nil || v == 0 {
		return 0, false
	}
	return identity.ClientID(v), true
}

// publicKey reports whether the key field is present and truthy, and if so
// whether it is a flat list of integers.
func (r rawRequest) publicKey() (key knapsack.PublicKey, present, valid bool) {
	v := r["public_key"]
	if falsy(v) {
		return nil, false, false
	}
	list, ok := v.([]any)
	if !ok {
		return nil, true, false
	}
	key = make(knapsack.PublicKey, len(list))
	for i, e := range list {
		n, ok := e.(json.Number)
		if !ok {
			return nil, true, false
		}
		b, ok := new(big.Int).SetString(n.String(), 10)
		if !ok {
			return nil, true, false
		}
		key[i] = b
	}
	return key, true, true
}

// falsy mirrors JSON values that carry no data: null, false, 0, "" and
// empty containers.
func falsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
