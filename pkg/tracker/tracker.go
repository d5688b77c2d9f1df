// Copyright © 2021 Rak Laptudirm <raklaptudirm@gmail.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tracker implements the HTTP tracker GET request of BEP 3:
// building the announce URL and decoding the bencoded response.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ravel-io/mtor/pkg/bencode"
	"github.com/ravel-io/mtor/pkg/peer"
)

// Request holds the parameters of a tracker announce.
type Request struct {
	Announce string   // tracker announce url
	InfoHash [20]byte // torrent info hash
	PeerID   [20]byte // client peer id

	Port       uint16 // port the client is listening on
	Uploaded   int64  // bytes uploaded so far
	Downloaded int64  // bytes downloaded so far
	Left       int64  // bytes left to download

	NumWant int // number of peers requested
}

// response mirrors the bencoded dictionary a tracker replies with.
type response struct {
	Failure string `bencode:"failure reason"`
	Warning string `bencode:"warning message"`

	Interval    int `bencode:"interval"`
	MinInterval int `bencode:"min interval"`

	TrackerID string `bencode:"tracker id"`

	Complete   int `bencode:"complete"`
	Incomplete int `bencode:"incomplete"`

	// Peers is either a compact byte string (BEP 3's preferred form) or
	// a list of {peer id, ip, port} dicts; the concrete shape is only
	// known once decoded, so it is read generically and resolved by
	// decodePeers.
	Peers any `bencode:"peers"`
}

// Response is the parsed, peer-resolved result of an announce.
type Response struct {
	Interval int
	Peers    []peer.Peer
}

// FailureError is returned when the tracker's response body carries a
// "failure reason" instead of a peer list.
type FailureError struct {
	Reason string
}

func (e *FailureError) Error() string { return fmt.Sprintf("tracker: %s", e.Reason) }

// Announce performs the HTTP tracker GET request described by req and
// decodes the response.
func Announce(ctx context.Context, client *http.Client, req Request) (*Response, error) {
	u, err := url(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracker: unexpected status %s", res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var r response
	if err := bencode.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("tracker: decoding response: %w", err)
	}

	if r.Failure != "" {
		return nil, &FailureError{Reason: r.Failure}
	}

	peers, err := decodePeers(r.Peers)
	if err != nil {
		return nil, err
	}

	return &Response{Interval: r.Interval, Peers: peers}, nil
}

// decodePeers resolves the tracker's peers value, accepting both the
// compact form (a byte string of concatenated 6-byte peer entries) and
// the non-compact form (a list of {peer id, ip, port} dicts).
func decodePeers(raw any) ([]peer.Peer, error) {
	switch v := raw.(type) {
	case string:
		return peer.Unmarshal([]byte(v))
	case []any:
		peers := make([]peer.Peer, 0, len(v))
		for _, entry := range v {
			dict, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("tracker: peer entry is not a dictionary")
			}

			ip, ok := dict["ip"].(string)
			if !ok {
				return nil, fmt.Errorf("tracker: peer entry missing ip")
			}
			port, ok := dict["port"].(int64)
			if !ok {
				return nil, fmt.Errorf("tracker: peer entry missing port")
			}

			addr := net.ParseIP(ip)
			if addr == nil {
				resolved, err := net.LookupIP(ip)
				if err != nil || len(resolved) == 0 {
					return nil, fmt.Errorf("tracker: could not resolve peer host %q", ip)
				}
				addr = resolved[0]
			}

			peers = append(peers, peer.Peer{IP: addr, Port: uint16(port)})
		}
		return peers, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("tracker: unexpected peers type %T", raw)
	}
}

// url builds the tracker announce URL for req. info_hash and peer_id
// are percent-encoded byte-for-byte in uppercase hex, matching what
// every tracker implementation expects; net/url.Values.Encode would
// instead apply query-string escaping (encoding space as '+', leaving
// some bytes unescaped) and silently corrupt the 20 raw hash bytes.
func url(req Request) (string, error) {
	if !strings.HasPrefix(req.Announce, "http://") && !strings.HasPrefix(req.Announce, "https://") {
		return "", errors.New("tracker: only http(s) announce urls are supported")
	}

	query := fmt.Sprintf(
		"info_hash=%s&peer_id=%s&port=%d&uploaded=%d&downloaded=%d&left=%d&compact=1&numwant=%d",
		percentEncode(req.InfoHash[:]),
		percentEncode(req.PeerID[:]),
		req.Port,
		req.Uploaded,
		req.Downloaded,
		req.Left,
		req.NumWant,
	)

	sep := "?"
	if strings.Contains(req.Announce, "?") {
		sep = "&"
	}

	return req.Announce + sep + query, nil
}

// percentEncode percent-encodes every byte of buf. Unlike
// net/url.QueryEscape, it never substitutes '+' for space and always
// escapes every byte outside [A-Za-z0-9._~-], so the 20 raw hash bytes
// survive the round trip unchanged.
func percentEncode(buf []byte) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(buf) * 3)

	for _, c := range buf {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '.', c == '_', c == '~', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0xf])
		}
	}

	return b.String()
}
