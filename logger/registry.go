package logger

import "sync"

// Named loggers let a binary route one pipeline or component to its own
// level or sink without threading a *Logger through every constructor.
var named sync.Map // map[string]*Logger

// Register makes l the logger returned by Get(name).
func Register(name string, l *Logger) {
	named.Store(name, l)
}

// Unregister removes the logger registered under name.
func Unregister(name string) {
	named.Delete(name)
}

// Get returns the logger registered under name, or the global logger tagged
// with name as its component.
func Get(name string) *Logger {
	if l, ok := named.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}
