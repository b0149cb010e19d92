package runtime

import (
	"fmt"
	"reflect"

	"github.com/nyan233/workerpool/core/protocol/werror"
)

// builtinRun 把第一个参数作为函数值应用到其余参数上
// 没有动态求值, 源码文本形式的函数不被支持; 进程传输无法携带函数值,
// 所以run只对线程类型的执行器有意义
func (r *Runtime) builtinRun(params []interface{}) (interface{}, error) {
	if len(params) == 0 {
		return nil, r.eHandle.NewErrorDesc(werror.ConfigurationError,
			"run requires a function value as its first parameter")
	}
	fn := reflect.ValueOf(params[0])
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, r.eHandle.NewErrorDesc(werror.ConfigurationError,
			"run requires a function value; shipping source text is not supported")
	}
	return r.apply(fn, params[1:])
}

func (r *Runtime) builtinMethods(params []interface{}) (interface{}, error) {
	return r.Methods(), nil
}

func (r *Runtime) apply(fn reflect.Value, args []interface{}) (interface{}, error) {
	fnType := fn.Type()
	if !fnType.IsVariadic() && fnType.NumIn() != len(args) {
		return nil, r.eHandle.NewErrorDesc(werror.ConfigurationError,
			fmt.Sprintf("run: function wants %d arguments, got %d", fnType.NumIn(), len(args)))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		inType := argType(fnType, i)
		if arg == nil {
			in[i] = reflect.Zero(inType)
			continue
		}
		v := reflect.ValueOf(arg)
		switch {
		case v.Type().AssignableTo(inType):
			in[i] = v
		case v.Type().ConvertibleTo(inType):
			in[i] = v.Convert(inType)
		default:
			return nil, r.eHandle.NewErrorDesc(werror.ConfigurationError,
				fmt.Sprintf("run: argument %d has type %s, want %s", i, v.Type(), inType))
		}
	}
	out := fn.Call(in)
	var result interface{}
	for _, v := range out {
		if err, ok := v.Interface().(error); ok {
			if err != nil {
				return nil, err
			}
			continue
		}
		if result == nil {
			result = v.Interface()
		}
	}
	return result, nil
}

func argType(fnType reflect.Type, i int) reflect.Type {
	if fnType.IsVariadic() && i >= fnType.NumIn()-1 {
		return fnType.In(fnType.NumIn() - 1).Elem()
	}
	return fnType.In(i)
}
