// Package mocks provides gomock doubles for the queue's extension points.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	obs := mocks.NewMockObserver(ctrl)
//	obs.EXPECT().JobChanged(gomock.Any(), gomock.Any()).AnyTimes()
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=observer_mock.go github.com/kiranshivaraju/scribe/internal/queue Observer
