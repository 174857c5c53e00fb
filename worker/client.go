// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned by Client.Call after the worker stopped.
var ErrClosed = errors.New("worker closed")

// Conn is the message boundary of a worker.
type Conn interface {
	Requests() chan<- Request
	Responses() <-chan Response
}

// ResponseError is an ERROR response turned into an error.
//
// errors.Is matches any error whose message the response carries,
// so the sheetview sentinels survive the message boundary.
type ResponseError struct {
	ID      string
	Message string
}

func (e *ResponseError) Error() string { return e.Message }

func (e *ResponseError) Is(target error) bool {
	return target != nil && strings.Contains(e.Message, target.Error())
}

// Client correlates requests with their responses.
//
// Responses nobody waits for any more (the caller gave up) are dropped.
// Advisories go to the Advisories channel; when it is full they are dropped.
type Client struct {
	requests   chan<- Request
	logger     *slog.Logger
	advisories chan Response
	done       chan struct{}

	mu      sync.Mutex
	pending map[string]chan Response
}

// NewClient starts demultiplexing the responses of conn.
func NewClient(conn Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		requests:   conn.Requests(),
		logger:     logger,
		advisories: make(chan Response, 8),
		done:       make(chan struct{}),
		pending:    make(map[string]chan Response),
	}
	go c.demux(conn.Responses())
	return c
}

// Advisories delivers the responses without an ID.
// It is closed when the worker stops.
func (c *Client) Advisories() <-chan Response { return c.advisories }

func (c *Client) demux(responses <-chan Response) {
	defer close(c.advisories)
	defer close(c.done)
	for resp := range responses {
		if resp.ID == "" {
			select {
			case c.advisories <- resp:
			default:
				c.logger.Debug("advisory dropped", "type", resp.Type)
			}
			continue
		}
		c.mu.Lock()
		ch := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ch == nil {
			c.logger.Debug("stale response dropped", "id", resp.ID, "type", resp.Type)
			continue
		}
		ch <- resp
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Call sends req and waits for its response.
// An empty req.ID is filled with a new UUID.
// An ERROR response is returned together with a *ResponseError.
func (c *Client) Call(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ch := make(chan Response, 1)
	c.mu.Lock()
	c.pending[req.ID] = ch
	c.mu.Unlock()

	select {
	case c.requests <- req:
	case <-ctx.Done():
		c.forget(req.ID)
		return Response{}, ctx.Err()
	case <-c.done:
		c.forget(req.ID)
		return Response{}, ErrClosed
	}

	var resp Response
	select {
	case resp = <-ch:
	case <-ctx.Done():
		c.forget(req.ID)
		return Response{}, ctx.Err()
	case <-c.done:
		select {
		case resp = <-ch:
		default:
			c.forget(req.ID)
			return Response{}, ErrClosed
		}
	}
	if resp.Type == Error {
		return resp, &ResponseError{ID: resp.ID, Message: resp.Error}
	}
	return resp, nil
}
