package retry

import "errors"

// ErrControllerClosed 控制器已关闭
var ErrControllerClosed = errors.New("retry controller closed")
