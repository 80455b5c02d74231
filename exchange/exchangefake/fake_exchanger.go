package exchangefake

import (
	"context"
	"sync"

	"github.com/Tanveersultana125/co-teacher/exchange"
)

var _ exchange.Exchanger = (*FakeExchanger)(nil)

// FakeExchanger answers token exchanges from a script
type FakeExchanger struct {
	lock    sync.Mutex
	result  exchange.Result
	err     error
	release chan struct{}
	calls   []string
}

func NewFakeExchanger() *FakeExchanger {
	return &FakeExchanger{}
}

// Succeed makes later exchanges return result
func (f *FakeExchanger) Succeed(result exchange.Result) *FakeExchanger {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.result, f.err = result, nil
	return f
}

// Fail makes later exchanges return err
func (f *FakeExchanger) Fail(err error) *FakeExchanger {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.result, f.err = exchange.Result{}, err
	return f
}

// Hold makes later exchanges block until the returned function is called or ctx is done
func (f *FakeExchanger) Hold() (release func()) {
	f.lock.Lock()
	defer f.lock.Unlock()
	ch := make(chan struct{})
	f.release = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *FakeExchanger) Exchange(ctx context.Context, idToken string) (exchange.Result, error) {
	f.lock.Lock()
	f.calls = append(f.calls, idToken)
	release := f.release
	f.lock.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return exchange.Result{}, ctx.Err()
		}
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	return f.result, f.err
}

// Calls returns the ID tokens received so far
func (f *FakeExchanger) Calls() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.calls...)
}
