package mock

import "github.com/fwojciec/arcgisdl"

var _ arcgisdl.Observer = (*Observer)(nil)

// Observer is a mock implementation of arcgisdl.Observer.
// Nil funcs are ignored.
type Observer struct {
	FetchCompletedFn func(source arcgisdl.FetchSource)
	FetchFailedFn    func(err error)
	TokenRetriedFn   func()
	LayerFinishedFn  func(status arcgisdl.LayerStatus, features int)
}

func (o *Observer) FetchCompleted(source arcgisdl.FetchSource) {
	if o.FetchCompletedFn != nil {
		o.FetchCompletedFn(source)
	}
}

func (o *Observer) FetchFailed(err error) {
	if o.FetchFailedFn != nil {
		o.FetchFailedFn(err)
	}
}

func (o *Observer) TokenRetried() {
	if o.TokenRetriedFn != nil {
		o.TokenRetriedFn()
	}
}

func (o *Observer) LayerFinished(status arcgisdl.LayerStatus, features int) {
	if o.LayerFinishedFn != nil {
		o.LayerFinishedFn(status, features)
	}
}
