package auth

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// passHandler is a grpc.UnaryHandler that returns ("ok", nil).
func passHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "ok", nil
}

func callWithKey(t *testing.T, interceptor grpc.UnaryServerInterceptor, header, key string) (interface{}, error) {
	t.Helper()
	ctx := context.Background()
	if key != "" {
		ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(header, key))
	}
	return interceptor(ctx, nil, &grpc.UnaryServerInfo{}, passHandler)
}

// fakeStream is a grpc.ServerStream carrying only a context.
type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f fakeStream) Context() context.Context { return f.ctx }

func TestAPIKeyInterceptor(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		header   string
		key      string
		sendHdr  string
		sendKey  string
		wantCode codes.Code
	}{
		{"mode none passes", "none", "x-api-key", "secret", "", "", codes.OK},
		{"empty key passes", "apikey", "x-api-key", "", "", "", codes.OK},
		{"correct key", "apikey", "x-api-key", "supersecret", "x-api-key", "supersecret", codes.OK},
		{"custom header", "apikey", "x-twin-key", "tok", "x-twin-key", "tok", codes.OK},
		{"wrong key", "apikey", "x-api-key", "supersecret", "x-api-key", "wrong", codes.Unauthenticated},
		{"no metadata", "apikey", "x-api-key", "supersecret", "", "", codes.Unauthenticated},
		{"key under other header", "apikey", "x-api-key", "supersecret", "authorization", "supersecret", codes.Unauthenticated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			i := APIKeyInterceptor(tc.mode, tc.header, tc.key)
			res, err := callWithKey(t, i, tc.sendHdr, tc.sendKey)
			if code := status.Code(err); code != tc.wantCode {
				t.Fatalf("code: got %v, want %v", code, tc.wantCode)
			}
			if tc.wantCode == codes.OK && res != "ok" {
				t.Errorf("result: got %v, want ok", res)
			}
		})
	}
}

func TestAPIKeyInterceptor_MissingHeader_Unauthenticated(t *testing.T) {
	i := APIKeyInterceptor("apikey", "x-api-key", "supersecret")
	ctx := metadata.NewIncomingContext(context.Background(), metadata.MD{})
	_, err := i(ctx, nil, &grpc.UnaryServerInfo{}, passHandler)
	if code := status.Code(err); code != codes.Unauthenticated {
		t.Errorf("code: got %v, want Unauthenticated", code)
	}
}

func TestAPIKeyStreamInterceptor(t *testing.T) {
	i := APIKeyStreamInterceptor("apikey", "x-api-key", "supersecret")
	called := false
	handler := func(srv interface{}, ss grpc.ServerStream) error {
		called = true
		return nil
	}

	bad := fakeStream{ctx: metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "nope"))}
	if err := i(nil, bad, &grpc.StreamServerInfo{}, handler); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("wrong key: got %v, want Unauthenticated", err)
	}
	if called {
		t.Fatal("handler ran for an unauthenticated stream")
	}

	good := fakeStream{ctx: metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "supersecret"))}
	if err := i(nil, good, &grpc.StreamServerInfo{}, handler); err != nil {
		t.Fatalf("correct key: %v", err)
	}
	if !called {
		t.Fatal("handler did not run")
	}
}
