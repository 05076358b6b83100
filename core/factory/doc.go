// Package factory instantiates pluggable modules (realtime sinks, metrics
// sinks) from configuration. A module is a type name plus a map of raw
// settings that the registered factory decodes into its own struct.
//
//	reg := factory.NewRegistry[publisher.Sink]()
//	_ = reg.Register("kafka", func(conf map[string]any) (publisher.Sink, error) {
//	    var c kafka.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return kafka.NewSink(c)
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "kafka", Conf: raw})
package factory
