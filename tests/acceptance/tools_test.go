package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pierre-fitness/pierre-gateway/internal/dto"
)

func (s *Suite) TestListTools() {
	s.registerUser("tools@example.com", "Password123")
	session := s.login("tools@example.com", "Password123")

	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/api/tools", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", session.AccessToken))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Tools []struct {
				Name    string `json:"name"`
				Enabled bool   `json:"enabled"`
			} `json:"tools"`
		} `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))

	s.True(envelope.Success)
	s.NotEmpty(envelope.Data.Tools)

	names := make(map[string]bool)
	for _, tool := range envelope.Data.Tools {
		names[tool.Name] = tool.Enabled
	}
	s.True(names["get_activities"])
	s.True(names["connect_provider"])
}

func (s *Suite) TestListTools_Unauthenticated() {
	resp, err := http.Get(s.BaseURL + "/api/tools")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestCallTool_Unknown() {
	s.registerUser("unknown-tool@example.com", "Password123")
	session := s.login("unknown-tool@example.com", "Password123")

	resp := s.callTool(session.AccessToken, "does_not_exist", map[string]any{})
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)

	var envelope dto.RESTEnvelope
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	s.False(envelope.Success)
	s.Equal("tool not found: does_not_exist", envelope.Message)
}

func (s *Suite) TestCallTool_NoProviderConnection() {
	s.registerUser("no-conn@example.com", "Password123")
	session := s.login("no-conn@example.com", "Password123")

	resp := s.callTool(session.AccessToken, "get_athlete", map[string]any{"provider": "strava"})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var envelope dto.RESTEnvelope
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	s.False(envelope.Success)
	s.Contains(envelope.Message, "please reconnect")
}

func (s *Suite) TestCallTool_AdminOnly() {
	s.registerUser("plain-user@example.com", "Password123")
	session := s.login("plain-user@example.com", "Password123")

	resp := s.callTool(session.AccessToken, "admin_delete_user", map[string]any{"user_id": session.User.ID})
	defer resp.Body.Close()

	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *Suite) TestRPC_ToolsList() {
	s.registerUser("rpc@example.com", "Password123")
	session := s.login("rpc@example.com", "Password123")

	resp := s.rpc(session.AccessToken, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var rpcResp struct {
		JSONRPC string `json:"jsonrpc"`
		ID      any    `json:"id"`
		Result  struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&rpcResp))

	s.Equal("2.0", rpcResp.JSONRPC)
	s.NotEmpty(rpcResp.Result.Tools)

	names := make([]string, 0, len(rpcResp.Result.Tools))
	for _, tool := range rpcResp.Result.Tools {
		names = append(names, tool.Name)
	}
	s.Contains(names, "get_activities")
	s.Contains(names, "list_tools")
}

func (s *Suite) TestRPC_ParseError() {
	s.registerUser("rpc-parse@example.com", "Password123")
	session := s.login("rpc-parse@example.com", "Password123")

	resp := s.rpc(session.AccessToken, `{not json`)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var rpcResp dto.JSONRPCResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&rpcResp))
	s.Require().NotNil(rpcResp.Error)
	s.Equal(-32700, rpcResp.Error.Code)
}

func (s *Suite) TestRPC_UnknownMethod() {
	s.registerUser("rpc-unknown@example.com", "Password123")
	session := s.login("rpc-unknown@example.com", "Password123")

	resp := s.rpc(session.AccessToken, `{"jsonrpc":"2.0","id":7,"method":"no_such_tool"}`)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var rpcResp dto.JSONRPCResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&rpcResp))
	s.Require().NotNil(rpcResp.Error)
	s.Equal(-32601, rpcResp.Error.Code)
	s.Equal(float64(7), rpcResp.ID)
}

func (s *Suite) TestA2A_UnknownToolReportsFailedTask() {
	s.registerUser("a2a@example.com", "Password123")
	session := s.login("a2a@example.com", "Password123")

	req, _ := http.NewRequest(http.MethodPost, s.BaseURL+"/a2a/does_not_exist", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", session.AccessToken))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var task dto.A2AResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&task))
	s.Equal("task", task.Kind)
	s.Equal("failed", task.Status)
	s.NotEmpty(task.Error)
}

// callTool invokes POST /api/tools/:tool with a bearer token
func (s *Suite) callTool(accessToken, tool string, params map[string]any) *http.Response {
	payload, err := json.Marshal(params)
	s.Require().NoError(err)

	req, _ := http.NewRequest(http.MethodPost, s.BaseURL+"/api/tools/"+tool, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

// rpc posts a raw JSON-RPC body
func (s *Suite) rpc(accessToken, body string) *http.Response {
	req, _ := http.NewRequest(http.MethodPost, s.BaseURL+"/rpc", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}
