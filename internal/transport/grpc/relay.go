package grpcx

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"

	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Полные имена методов для grpc.ClientConn.Invoke.
const (
	MethodCreateRoom = "/" + ServiceName + "/CreateRoom"
	MethodGetHistory = "/" + ServiceName + "/GetHistory"
)

type ChatAPI interface {
	CreateRoom(ctx context.Context) (*domain.Room, error)
	GetHistory(ctx context.Context, code string) ([]domain.Message, error)
}

// RelayServer: сообщения сервиса собраны из well-known типов protobuf,
// поэтому сгенерированный код не нужен.
type RelayServer interface {
	CreateRoom(ctx context.Context, req *emptypb.Empty) (*wrapperspb.StringValue, error)
	GetHistory(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error)
}

type relayServer struct {
	chat ChatAPI
}

func newRelayServer(chat ChatAPI) *relayServer {
	return &relayServer{chat: chat}
}

// CreateRoom возвращает код новой комнаты.
func (s *relayServer) CreateRoom(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	room, err := s.chat.CreateRoom(ctx)
	if err != nil {
		return nil, toStatus("CreateRoom", err)
	}
	return wrapperspb.String(room.Code), nil
}

// GetHistory: те же поля, что у JSON-истории по HTTP; sent_at в RFC 3339.
func (s *relayServer) GetHistory(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	code := strings.TrimSpace(req.GetValue())
	if code == "" {
		return nil, status.Error(codes.InvalidArgument, "room code is required")
	}

	msgs, err := s.chat.GetHistory(ctx, code)
	if err != nil {
		return nil, toStatus("GetHistory", err)
	}

	list, err := structpb.NewList(lo.Map(msgs, func(m domain.Message, _ int) any {
		return map[string]any{
			"id":               m.ID,
			"room_id":          m.RoomID,
			"participant_name": m.ParticipantName,
			"content":          m.Content,
			"sent_at":          m.SentAt.UTC().Format(time.RFC3339Nano),
		}
	}))
	if err != nil {
		return nil, status.Error(codes.Internal, "encode history")
	}
	return list, nil
}

func toStatus(op string, err error) error {
	if errors.Is(err, domain.ErrRoomNotFound) {
		return status.Error(codes.NotFound, "room not found")
	}
	slog.Error("grpc."+op, slog.Any("err", err))
	if errors.Is(err, domain.ErrStoreFailure) {
		return status.Error(codes.Unavailable, "store unavailable")
	}
	return status.Error(codes.Internal, "internal error")
}

func registerRelayServer(s grpc.ServiceRegistrar, srv RelayServer) {
	s.RegisterService(&relayServiceDesc, srv)
}

func createRoomHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServer).CreateRoom(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodCreateRoom}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServer).CreateRoom(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getHistoryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServer).GetHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetHistory}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServer).GetHistory(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var relayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RelayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateRoom", Handler: createRoomHandler},
		{MethodName: "GetHistory", Handler: getHistoryHandler},
	},
	Streams: []grpc.StreamDesc{},
}
