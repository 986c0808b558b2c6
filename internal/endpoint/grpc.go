package endpoint

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// GRPCConnPool resolves a grpc.ClientConn for an Endpoint's baseURL,
// reusing connections the way the teacher's LumaGRPCServer reuses its
// *grpc.Server registration rather than dialing per call.
type GRPCConnPool struct {
	dial func(target string) (*grpc.ClientConn, error)
	open map[string]*grpc.ClientConn
}

func NewGRPCConnPool(dial func(target string) (*grpc.ClientConn, error)) *GRPCConnPool {
	return &GRPCConnPool{dial: dial, open: make(map[string]*grpc.ClientConn)}
}

func (p *GRPCConnPool) conn(target string) (*grpc.ClientConn, error) {
	if c, ok := p.open[target]; ok {
		return c, nil
	}
	c, err := p.dial(target)
	if err != nil {
		return nil, err
	}
	p.open[target] = c
	return c, nil
}

// InvokeDynamic issues a single unary gRPC call described by ep against a
// dynamically-constructed protobuf message, using protoreflect so the
// gateway need not be compiled against the upstream's generated stubs —
// the @grpc directive only names service/method/protoId at config time.
func InvokeDynamic(ctx context.Context, pool *GRPCConnPool, target string, ep *Endpoint, inputDesc, outputDesc protoreflect.MessageDescriptor, inputBytes []byte) ([]byte, error) {
	conn, err := pool.conn(target)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "dial %s: %v", target, err)
	}

	in := dynamicpb.NewMessage(inputDesc)
	if err := proto.Unmarshal(inputBytes, in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}

	out := dynamicpb.NewMessage(outputDesc)
	fullMethod := fmt.Sprintf("/%s/%s", ep.GRPCService, ep.GRPCMethod)
	if err := conn.Invoke(ctx, fullMethod, in, out); err != nil {
		return nil, err
	}

	return proto.Marshal(out)
}
