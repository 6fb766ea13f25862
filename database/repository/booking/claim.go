package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"servly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Claim assigns a pooled booking to a provider with one conditional
// FindOneAndUpdate. The filter requires pending status, no current
// assignment and the expected version, so two requests arriving in
// the same millisecond resolve to exactly one winner at the store; no
// read-then-write happens in the application layer.
func (r *MongoBookingRepo) Claim(ctx context.Context, bookingID, providerID string, expectedVersion int64) (*models.Booking, error) {
	filter := bson.M{
		"id":     bookingID,
		"status": "pending",
		"provider_id": bson.M{
			"$in": bson.A{nil, ""},
		},
		"version": expectedVersion,
	}
	update := bson.M{
		"$set": bson.M{
			"provider_id": providerID,
			"status":      "accepted",
			"updated_at":  time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var booking models.Booking
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("claim update failed for booking %s: %w", bookingID, err)
	}
	return &booking, nil
}

// ApplyTransition performs one validated status transition as a
// single conditional update keyed on {id, status, version}.
func (r *MongoBookingRepo) ApplyTransition(ctx context.Context, upd TransitionUpdate) (*models.Booking, error) {
	filter := bson.M{
		"id":      upd.BookingID,
		"status":  upd.FromStatus,
		"version": upd.ExpectedVersion,
	}
	if upd.RequireProviderID != "" {
		filter["provider_id"] = upd.RequireProviderID
	}

	set := bson.M{
		"status":     upd.ToStatus,
		"updated_at": time.Now().UTC(),
	}
	update := bson.M{
		"$inc": bson.M{"version": 1},
	}
	if upd.AssignProviderID != nil {
		if *upd.AssignProviderID == "" {
			update["$unset"] = bson.M{"provider_id": ""}
		} else {
			set["provider_id"] = *upd.AssignProviderID
		}
	}
	if upd.SetTargeted != nil {
		set["targeted"] = *upd.SetTargeted
	}
	if upd.RejectionReason != "" {
		set["rejection_reason"] = upd.RejectionReason
	}
	if upd.CompletedAt != nil {
		set["completed_at"] = *upd.CompletedAt
	}
	update["$set"] = set

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var booking models.Booking
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("transition update failed for booking %s: %w", upd.BookingID, err)
	}
	return &booking, nil
}

// ApplySettlement writes commission fields exactly once; the filter
// requires them to still be unset.
func (r *MongoBookingRepo) ApplySettlement(ctx context.Context, bookingID string, rate, commission, net float64) (*models.Booking, error) {
	filter := bson.M{
		"id":                bookingID,
		"commission_amount": nil,
	}
	update := bson.M{
		"$set": bson.M{
			"commission_rate":   rate,
			"commission_amount": commission,
			"net_amount":        net,
			"updated_at":        time.Now().UTC(),
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var booking models.Booking
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("settlement update failed for booking %s: %w", bookingID, err)
	}
	return &booking, nil
}
