package handler

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ogurasousui/dp-roster-sync/internal/core/rosterquery"
	"github.com/ogurasousui/dp-roster-sync/internal/core/rostersync"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Sync の dataset に指定できる値です。
const (
	DatasetRoster    = "roster"
	DatasetAfastados = "afastados"
	DatasetAll       = "all"
)

// RosterHandler は gRPC 層から同期・照会ユースケースを呼び出すアダプタです。
type RosterHandler struct {
	sync  rostersync.UseCase
	query rosterquery.UseCase
	log   *zap.Logger
}

var _ RosterServiceServer = (*RosterHandler)(nil)

// NewRosterHandler は RosterHandler を生成します。
func NewRosterHandler(sync rostersync.UseCase, query rosterquery.UseCase, log *zap.Logger) *RosterHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RosterHandler{sync: sync, query: query, log: log.Named("grpc")}
}

// Sync は指定したデータセットを同期し、参照月ごとの結果を返します。
// 一部の参照月が失敗してもエラーにはせず、結果の stats に含めます。
func (h *RosterHandler) Sync(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	dataset, err := stringField(in, "dataset")
	if err != nil {
		return nil, err
	}
	force, err := boolField(in, "force")
	if err != nil {
		return nil, err
	}

	dataset = strings.ToLower(strings.TrimSpace(dataset))
	if dataset == "" {
		dataset = DatasetAll
	}

	out := map[string]any{}
	switch dataset {
	case DatasetRoster:
		out[DatasetRoster] = encodeSyncResult(h.sync.EnsureSnapshots(ctx, force))
	case DatasetAfastados:
		out[DatasetAfastados] = encodeSyncResult(h.sync.EnsureAfastadosResumo(ctx, force))
	case DatasetAll:
		out[DatasetRoster] = encodeSyncResult(h.sync.EnsureSnapshots(ctx, force))
		out[DatasetAfastados] = encodeSyncResult(h.sync.EnsureAfastadosResumo(ctx, force))
	default:
		return nil, status.Errorf(codes.InvalidArgument, "dataset must be one of roster, afastados, all: got %q", dataset)
	}

	h.log.Info("sync requested", zap.String("dataset", dataset), zap.Bool("force", force))
	return toStruct(out)
}

// GetCurrentRoster は当月の quadro を返します。
func (h *RosterHandler) GetCurrentRoster(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := h.query.CurrentRoster(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(encodeRoster(res))
}

// GetResumo は 4 参照月の部署別集計を返します。
func (h *RosterHandler) GetResumo(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := h.query.ResumoByWindow(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(encodeResumo(res))
}

// GetTurnover は 4 参照月の turnover を返します。
func (h *RosterHandler) GetTurnover(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := h.query.Turnover(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(encodeTurnover(res))
}

// GetAfastados は 4 参照月の afastados 件数を返します。
func (h *RosterHandler) GetAfastados(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := h.query.Afastados(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(encodeAfastados(res))
}

// GetAtivosPorCategoria は当月在籍者のカテゴリ別人数を返します。
func (h *RosterHandler) GetAtivosPorCategoria(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := h.query.AtivosPorCategoria(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(encodeCategories(res))
}

// ListSyncRuns は監査ログの新しい順の一覧を返します。
func (h *RosterHandler) ListSyncRuns(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	key, err := stringField(in, "dataset_key")
	if err != nil {
		return nil, err
	}
	limit, err := intField(in, "limit")
	if err != nil {
		return nil, err
	}

	runs, err := h.query.SyncRuns(ctx, strings.TrimSpace(key), limit)
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(encodeRuns(runs))
}

func lookup(in *structpb.Struct, name string) (*structpb.Value, bool) {
	if in == nil {
		return nil, false
	}
	v, ok := in.GetFields()[name]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func stringField(in *structpb.Struct, name string) (string, error) {
	v, ok := lookup(in, name)
	if !ok {
		return "", nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return s.StringValue, nil
}

func boolField(in *structpb.Struct, name string) (bool, error) {
	v, ok := lookup(in, name)
	if !ok {
		return false, nil
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return false, status.Errorf(codes.InvalidArgument, "%s must be a boolean", name)
	}
	return b.BoolValue, nil
}

func intField(in *structpb.Struct, name string) (int, error) {
	v, ok := lookup(in, name)
	if !ok {
		return 0, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, status.Error(codes.InvalidArgument, fmt.Sprintf("%s must be an integer", name))
	}
	return int(f), nil
}
