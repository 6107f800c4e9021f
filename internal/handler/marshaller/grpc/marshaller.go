package grpcmarshaller

import (
	"encoding/json"
	"fmt"

	"github.com/webitel/push-bridge-service/internal/domain/event"
	"google.golang.org/protobuf/types/known/structpb"
)

const cacheKey = "grpc"

// MarshallDeliveryEvent transforms a bridged event into a schemaless protobuf frame.
// The result is cached on the event so N streams convert once.
func MarshallDeliveryEvent(ev event.Eventer) (*structpb.Struct, error) {
	// 1. [PERFORMANCE] Check cache first.
	if cached, ok := ev.GetCached(cacheKey).(*structpb.Struct); ok {
		return cached, nil
	}

	// 2. Base frame mapping.
	payload, err := toValue(ev.GetPayload())
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.GetName(), err)
	}
	res := &structpb.Struct{Fields: map[string]*structpb.Value{
		"event":    structpb.NewStringValue(ev.GetName().String()),
		"id":       structpb.NewStringValue(ev.GetID()),
		"sent_at":  structpb.NewNumberValue(float64(ev.GetOccurredAt())),
		"priority": structpb.NewStringValue(mapPriority(ev.GetPriority())),
		"payload":  payload,
	}}

	// 3. [CACHE] Save the result back.
	ev.SetCached(cacheKey, res)
	return res, nil
}

// MarshallSystemEvent builds handshake and termination frames.
func MarshallSystemEvent(name, id string, sentAt int64, payload any) (*structpb.Struct, error) {
	v, err := toValue(payload)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"event":    structpb.NewStringValue(name),
		"id":       structpb.NewStringValue(id),
		"sent_at":  structpb.NewNumberValue(float64(sentAt)),
		"priority": structpb.NewStringValue(mapPriority(event.PriorityNormal)),
		"payload":  v,
	}}, nil
}

// toValue goes through JSON so the frame keeps the exact wire field names.
func toValue(payload any) (*structpb.Value, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}
