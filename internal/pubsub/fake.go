package pubsub

import (
	"context"
	"path"
	"strings"
	"sync"
)

// FakeAdapter is an in-process Adapter used by tests across packages
// that depend on pubsub.Adapter (the collector and orchestrator tests)
// so they can exercise real topic/dispatch logic without a broker.
type FakeAdapter struct {
	mu       sync.Mutex
	subs     []fakeSub
	Published []FakePublished
}

type fakeSub struct {
	pattern string
	handler Handler
}

// FakePublished records one Publish call for test assertions.
type FakePublished struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

func NewFakeAdapter() *FakeAdapter { return &FakeAdapter{} }

func (f *FakeAdapter) Start(ctx context.Context) error { return nil }
func (f *FakeAdapter) Stop() error                     { return nil }

func (f *FakeAdapter) Publish(topic string, payload []byte, qos byte, retain bool) error {
	f.mu.Lock()
	f.Published = append(f.Published, FakePublished{Topic: topic, Payload: payload, QoS: qos, Retain: retain})
	subs := make([]fakeSub, len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, s := range subs {
		if topicMatches(s.pattern, topic) {
			s.handler(topic, payload)
		}
	}
	return nil
}

func (f *FakeAdapter) Subscribe(pattern string, qos byte, handler Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fakeSub{pattern: pattern, handler: handler})
	return nil
}

// topicMatches implements MQTT's + (single level) and # (multi level,
// trailing only) wildcard semantics against a concrete topic.
func topicMatches(pattern, topic string) bool {
	pSegs := strings.Split(path.Clean(pattern), "/")
	tSegs := strings.Split(path.Clean(topic), "/")

	for i, p := range pSegs {
		if p == "#" {
			return true // matches this level and everything after
		}
		if i >= len(tSegs) {
			return false
		}
		if p == "+" {
			continue
		}
		if p != tSegs[i] {
			return false
		}
	}
	return len(pSegs) == len(tSegs)
}
