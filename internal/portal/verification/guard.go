package verification

import (
	"sync"

	"gdg-portal/internal/pkg/xerrors"
)

// Guard 按流程 ID 的在途请求保护：同一流程同时只允许一个请求访问身份服务，
// 第二个请求直接返回 CodeFlowBusy，而不是排队重复提交。
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{inflight: make(map[string]struct{})}
}

// Acquire 占用流程，返回的 release 必须在 defer 中调用
func (g *Guard) Acquire(flowID string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inflight[flowID]; busy {
		return nil, xerrors.NewFlowBusyError(flowID)
	}
	g.inflight[flowID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inflight, flowID)
			g.mu.Unlock()
		})
	}, nil
}

// InFlight 当前占用中的流程数
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}
