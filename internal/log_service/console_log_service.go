package log_service

import (
	"log"
	"os"
	"strings"
	"sync"
)

// ConsoleLogService writes formatted log events to stderr. The client
// and MCP entry points and the tests use it; the naming and storage
// servers log to disc instead.
type ConsoleLogService struct {
	nodeID   string
	mu       sync.Mutex
	logger   *log.Logger
	minLevel int
}

func NewConsoleLogService(nodeID string, minLogLevel ...string) *ConsoleLogService {
	service := &ConsoleLogService{
		nodeID:   nodeID,
		logger:   log.New(os.Stderr, "", 0),
		minLevel: DebugLevelValue,
	}

	if len(minLogLevel) > 0 && minLogLevel[0] != "" {
		service.minLevel = GetLevelValue(strings.ToUpper(strings.TrimSpace(minLogLevel[0])))
	}

	return service
}

func (ls *ConsoleLogService) log(level string, event LogEvent) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if GetLevelValue(level) < ls.minLevel {
		return
	}

	event.NodeID = ls.nodeID
	ls.logger.Print(formatLog(level, event))
}

func (ls *ConsoleLogService) Debug(event LogEvent) {
	ls.log(DebugLevel, event)
}

func (ls *ConsoleLogService) Info(event LogEvent) {
	ls.log(InfoLevel, event)
}

func (ls *ConsoleLogService) Warn(event LogEvent) {
	ls.log(WarnLevel, event)
}

func (ls *ConsoleLogService) Error(event LogEvent) {
	ls.log(ErrorLevel, event)
}

var _ LogService = (*ConsoleLogService)(nil)
