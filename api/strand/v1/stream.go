package strandv1

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "strand.v1.EventStreamService"

const openStreamMethod = "/" + ServiceName + "/OpenStream"

// EventStreamClient is the client API of the strand.v1 event stream service.
type EventStreamClient interface {
	// OpenStream opens a bidirectional tailing session. The client sends an
	// OpenStream request first, then FlowControl messages; the server sends
	// EventEnvelopes until the client closes or the connection fails.
	OpenStream(ctx context.Context, opts ...grpc.CallOption) (EventStream_OpenStreamClient, error)
}

type eventStreamClient struct {
	cc grpc.ClientConnInterface
}

// NewEventStreamClient constructs an EventStreamClient on the given connection.
func NewEventStreamClient(cc grpc.ClientConnInterface) EventStreamClient {
	return &eventStreamClient{cc: cc}
}

var openStreamDesc = &grpc.StreamDesc{
	StreamName:    "OpenStream",
	ServerStreams: true,
	ClientStreams: true,
}

func (c *eventStreamClient) OpenStream(ctx context.Context, opts ...grpc.CallOption) (EventStream_OpenStreamClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	s, err := c.cc.NewStream(ctx, openStreamDesc, openStreamMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &eventStreamOpenStreamClient{ClientStream: s}, nil
}

// EventStream_OpenStreamClient is the client view of an OpenStream session.
type EventStream_OpenStreamClient interface {
	Send(*StreamRequest) error
	Recv() (*EventEnvelope, error)
	grpc.ClientStream
}

type eventStreamOpenStreamClient struct {
	grpc.ClientStream
}

func (x *eventStreamOpenStreamClient) Send(m *StreamRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *eventStreamOpenStreamClient) Recv() (*EventEnvelope, error) {
	m := new(EventEnvelope)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// EventStreamServer is the server API of the strand.v1 event stream service.
type EventStreamServer interface {
	OpenStream(EventStream_OpenStreamServer) error
}

// EventStream_OpenStreamServer is the server view of an OpenStream session.
type EventStream_OpenStreamServer interface {
	Send(*EventEnvelope) error
	Recv() (*StreamRequest, error)
	grpc.ServerStream
}

type eventStreamOpenStreamServer struct {
	grpc.ServerStream
}

func (x *eventStreamOpenStreamServer) Send(m *EventEnvelope) error {
	return x.ServerStream.SendMsg(m)
}

func (x *eventStreamOpenStreamServer) Recv() (*StreamRequest, error) {
	m := new(StreamRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func openStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(EventStreamServer).OpenStream(&eventStreamOpenStreamServer{ServerStream: stream})
}

// EventStreamServiceDesc is the grpc.ServiceDesc for the event stream
// service. Exposed so embedders can register the service on their own server.
var EventStreamServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EventStreamServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "OpenStream",
			Handler:       openStreamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}

// RegisterEventStreamServer registers srv on the given registrar.
func RegisterEventStreamServer(s grpc.ServiceRegistrar, srv EventStreamServer) {
	s.RegisterService(&EventStreamServiceDesc, srv)
}
