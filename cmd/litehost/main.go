package main

// litehost loads a guest WASM module, exposes the SQLite binding to it as
// the env.litehost_call host function, and runs the guest to completion.

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/litehost/litehost/hostmod"
)

type server struct {
	host *hostmod.Host
}

func readBytes(m api.Module, offset, byteCount uint32) []byte {
	buf, ok := m.Memory().Read(offset, byteCount)
	if !ok {
		log.Panicf("Memory.Read(%d, %d) out of range", offset, byteCount)
	}
	return buf
}

// writeBytes copies data into guest memory through the guest's alloc_bytes
// export and returns the guest pointer to it.
func (s *server) writeBytes(ctx context.Context, m api.Module, data []byte) uint32 {
	alloc := m.ExportedFunction("alloc_bytes")
	if alloc == nil {
		log.Panicln("guest does not export alloc_bytes")
	}
	result, err := alloc.Call(ctx, uint64(len(data)))
	if err != nil {
		log.Panicln(err)
	}
	ptr := uint32(result[0])
	if !m.Memory().Write(ptr, data) {
		log.Panicln("Memory.Write failed")
	}
	return ptr
}

// litehostCall is the single host entry point: read the request envelope
// from guest memory, dispatch it, write the response back into guest memory
// at a pointer stored through destPtr, and return the response length.
func (s *server) litehostCall(ctx context.Context, m api.Module, reqPtr, reqLen, destPtr uint32) int32 {
	request := readBytes(m, reqPtr, reqLen)
	response := s.host.Handle(request)

	ptr := s.writeBytes(ctx, m, response)
	if !m.Memory().WriteUint32Le(destPtr, ptr) {
		log.Panicln("Memory.Write of response pointer failed")
	}
	return int32(len(response))
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <guest.wasm> [args...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	wasmBytes, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read guest module: %v", err)
	}

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	s := &server{host: hostmod.NewHost()}
	_, err = r.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(s.litehostCall).Export("litehost_call").
		Instantiate(ctx)
	if err != nil {
		log.Fatalf("Failed to instantiate host module: %v", err)
	}

	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	cfg := wazero.NewModuleConfig().
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithArgs(flag.Args()...)
	if _, err := r.InstantiateWithConfig(ctx, wasmBytes, cfg); err != nil {
		log.Fatalf("Guest module failed: %v", err)
	}
}
