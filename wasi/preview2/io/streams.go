package io

import (
	"context"

	"github.com/wippyai/wasm-host/resource"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

type StreamsHost struct {
	view preview2.View
}

func NewStreamsHost(view preview2.View) *StreamsHost {
	return &StreamsHost{view: view}
}

func (h *StreamsHost) Namespace() string {
	return "wasi:io/streams@0.2.8"
}

func (h *StreamsHost) input(self resource.Handle) (preview2.InputStream, error) {
	return resource.GetAs[preview2.InputStream](h.view.Table(), self, resource.KindInputStream)
}

func (h *StreamsHost) output(self resource.Handle) (preview2.OutputStream, error) {
	return resource.GetAs[preview2.OutputStream](h.view.Table(), self, resource.KindOutputStream)
}

func (h *StreamsHost) MethodInputStreamRead(_ context.Context, self resource.Handle, length uint64) ([]byte, error) {
	s, err := h.input(self)
	if err != nil {
		return nil, err
	}
	return s.Read(length)
}

func (h *StreamsHost) MethodInputStreamBlockingRead(ctx context.Context, self resource.Handle, length uint64) ([]byte, error) {
	return h.MethodInputStreamRead(ctx, self, length)
}

func (h *StreamsHost) MethodInputStreamSkip(ctx context.Context, self resource.Handle, length uint64) (uint64, error) {
	data, err := h.MethodInputStreamRead(ctx, self, length)
	if err != nil {
		return 0, err
	}
	return uint64(len(data)), nil
}

func (h *StreamsHost) MethodOutputStreamCheckWrite(_ context.Context, self resource.Handle) (uint64, error) {
	s, err := h.output(self)
	if err != nil {
		return 0, err
	}
	return s.CheckWrite()
}

func (h *StreamsHost) MethodOutputStreamWrite(_ context.Context, self resource.Handle, contents []byte) error {
	s, err := h.output(self)
	if err != nil {
		return err
	}
	return s.Write(contents)
}

func (h *StreamsHost) MethodOutputStreamFlush(_ context.Context, self resource.Handle) error {
	s, err := h.output(self)
	if err != nil {
		return err
	}
	return s.Flush()
}

func (h *StreamsHost) MethodOutputStreamBlockingWriteAndFlush(ctx context.Context, self resource.Handle, contents []byte) error {
	if err := h.MethodOutputStreamWrite(ctx, self, contents); err != nil {
		return err
	}
	return h.MethodOutputStreamFlush(ctx, self)
}

func (h *StreamsHost) ResourceDropInputStream(_ context.Context, self resource.Handle) error {
	_, err := h.view.Table().Remove(self, resource.KindInputStream)
	return err
}

func (h *StreamsHost) ResourceDropOutputStream(_ context.Context, self resource.Handle) error {
	_, err := h.view.Table().Remove(self, resource.KindOutputStream)
	return err
}
