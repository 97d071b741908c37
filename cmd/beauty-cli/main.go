package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

const usage = `Usage: beauty-cli [flags] <command> [args]

Commands:
  create-order <orderId> <client> <master> <amount> <attachedValue>
  confirm <orderId> <caller> <present|absent>
  get-order <orderId>
  get-balance <address>
  receipts [orderId]
  events

Flags:
  -rpc string    RPC endpoint (default "http://localhost:8080")
  -auth string   bearer token for mutating commands
`

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data"`
	} `json:"error"`
}

func main() {
	rpcURL := flag.String("rpc", "http://localhost:8080", "RPC endpoint")
	authToken := flag.String("auth", "", "bearer token for mutating commands")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var (
		method string
		params interface{}
	)
	switch args[0] {
	case "create-order":
		if len(args) != 6 {
			fatalf("create-order expects 5 arguments")
		}
		method = "escrow_createOrder"
		params = map[string]interface{}{
			"orderId":       mustUint(args[1]),
			"client":        args[2],
			"master":        args[3],
			"amount":        args[4],
			"attachedValue": args[5],
		}
	case "confirm":
		if len(args) != 4 {
			fatalf("confirm expects 3 arguments")
		}
		present, err := parsePresence(args[3])
		if err != nil {
			fatalf("%v", err)
		}
		method = "escrow_confirm"
		params = map[string]interface{}{
			"orderId":    mustUint(args[1]),
			"caller":     args[2],
			"wasPresent": present,
		}
	case "get-order":
		if len(args) != 2 {
			fatalf("get-order expects 1 argument")
		}
		method = "escrow_getOrder"
		params = map[string]interface{}{"orderId": mustUint(args[1])}
	case "get-balance":
		if len(args) != 2 {
			fatalf("get-balance expects 1 argument")
		}
		method = "escrow_getBalance"
		params = map[string]interface{}{"address": args[1]}
	case "receipts":
		method = "escrow_listReceipts"
		if len(args) == 2 {
			params = map[string]interface{}{"orderId": mustUint(args[1])}
		}
	case "events":
		method = "escrow_listEvents"
	default:
		flag.Usage()
		os.Exit(2)
	}

	result, err := call(*rpcURL, *authToken, method, params)
	if err != nil {
		fatalf("%v", err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		fmt.Println(string(result))
		return
	}
	fmt.Println(pretty.String())
}

func call(url, token, method string, params interface{}) (json.RawMessage, error) {
	req := rpcRequest{JSONRPC: "2.0", Method: method, ID: 1}
	if params != nil {
		req.Params = []interface{}{params}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var decoded rpcResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("invalid response: %v", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s (%v)", decoded.Error.Code, decoded.Error.Message, decoded.Error.Data)
	}
	return decoded.Result, nil
}

func parsePresence(value string) (bool, error) {
	switch value {
	case "present":
		return true, nil
	case "absent":
		return false, nil
	default:
		return false, fmt.Errorf("presence must be %q or %q, got %q", "present", "absent", value)
	}
}

func mustUint(value string) uint64 {
	var parsed uint64
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil {
		fatalf("invalid order id %q", value)
	}
	return parsed
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
