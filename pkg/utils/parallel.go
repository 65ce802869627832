package utils

import "sync"

// ParallelMap 使用至多 workers 个 goroutine 并发执行 fn，结果与输入顺序一致。
// 输入不超过 1 个或 workers <= 1 时直接串行执行。
func ParallelMap[T any, R any](input []T, workers int, fn func(T) R) []R {
	results := make([]R, len(input))
	if len(input) == 0 {
		return results
	}
	if workers <= 1 || len(input) == 1 {
		for i, v := range input {
			results[i] = fn(v)
		}
		return results
	}
	if workers > len(input) {
		workers = len(input)
	}

	jobs := make(chan int, len(input))
	for i := range input {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = fn(input[i])
			}
		}()
	}
	wg.Wait()
	return results
}
