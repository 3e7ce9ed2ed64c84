// Package factory provides a small generic registry used to instantiate
// pluggable modules (metrics sinks, event forwarders) from configuration.
// Modules are described by a type string and a map of raw settings that the
// factory decodes into a typed struct.
//
//	reg := factory.NewRegistry[events.Forwarder]()
//	_ = reg.Register("redis", func(conf map[string]any) (events.Forwarder, error) {
//	    var c struct{ Addr string `json:"addr"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return redisq.New(c.Addr)
//	})
//	f, err := reg.Create(factory.ModuleConfig{Type: "redis", Conf: map[string]any{"addr": "localhost:6379"}})
package factory
