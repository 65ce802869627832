package consts

// GrpcAccountInclude 用于 gRPC 区块订阅过滤器，仅推送涉及已注册 DEX 程序的交易
var GrpcAccountInclude = func() []string {
	list := make([]string, 0, len(dexPrograms))
	for _, p := range dexPrograms {
		list = append(list, p.ProgramIDStr)
	}
	return list
}()
