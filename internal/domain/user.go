package domain

import "fmt"

// SubscriptionKeys carry the client crypto material the push service needs.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription addresses one device or browser of a user. The endpoint is
// the subscription's identity; everything else is opaque to the dispatcher.
type Subscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

func (s *Subscription) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: subscription is required", ErrValidation)
	}
	if s.Endpoint == "" {
		return fmt.Errorf("%w: subscription endpoint is required", ErrValidation)
	}
	return nil
}

// User is the dispatch-relevant view of an account: who can be addressed
// (subscriptions) and what they are eligible for (tags).
type User struct {
	ID            string
	Tags          []string
	Subscriptions []Subscription
}

func (u *User) HasTag(tag string) bool {
	if u == nil {
		return false
	}
	for _, t := range u.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
