package archive

import "sync"

type CompletedTask[T any] struct {
	Result T
	Error  error
}

// RunInPool feeds queue to maxWorkers goroutines and closes completed once
// queue is closed and drained.
func RunInPool[In any, Out any](worker func(In) (Out, error), queue <-chan In, completed chan<- CompletedTask[Out], maxWorkers int) {
	workers := max(maxWorkers, 1)

	go func() {
		wg := sync.WaitGroup{}
		wg.Add(workers)

		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()

				for next := range queue {
					res, err := worker(next)
					if err != nil {
						completed <- CompletedTask[Out]{Error: err}
					} else {
						completed <- CompletedTask[Out]{Result: res}
					}
				}
			}()
		}

		wg.Wait()

		close(completed)
	}()
}
