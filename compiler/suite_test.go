package compiler_test

import (
	"testing"

	"github.com/luthersystems/eclj/ecljtest"
)

func TestCore(t *testing.T) {
	tests := ecljtest.TestSuite{
		{"literals", ecljtest.TestSequence{
			{"1", "1", "", ""},
			{"2.5", "2.5", "", ""},
			{`"abc"`, `"abc"`, "", ""},
			{":k", ":k", "", ""},
			{"nil", "nil", "", ""},
			{"[1 [2] {:a 1}]", "[1 [2] {:a 1}]", "", ""},
			{"'(1 2)", "(1 2)", "", ""},
			{"()", "()", "", ""},
			{"#{1}", "#{1}", "", ""},
		}},
		{"arithmetic", ecljtest.TestSequence{
			{"(+)", "0", "", ""},
			{"(*)", "1", "", ""},
			{"(+ 1 2 3 4)", "10", "", ""},
			{"(- 5)", "-5", "", ""},
			{"(- 10 1 2)", "7", "", ""},
			{"(* 2 2.5)", "5.0", "", ""},
			{"(/ 6 3)", "2", "", ""},
			{"(/ 1 2)", "0.5", "", ""},
			{"(/ 1 0)", "", "", "Divide by zero"},
			{"(quot 7 2)", "3", "", ""},
			{"(rem -7 2)", "-1", "", ""},
			{"(inc 1)", "2", "", ""},
			{"(dec 1.5)", "0.5", "", ""},
			{"(max 1 5 3)", "5", "", ""},
			{"(min 4 2 8)", "2", "", ""},
			{"(< 1 2 3)", "true", "", ""},
			{"(< 1 3 2)", "false", "", ""},
			{"(== 1 1.0)", "true", "", ""},
			{"(zero? 0)", "true", "", ""},
			{"(bit-and 12 10 8)", "8", "", ""},
			{"(bit-shift-left 1 64)", "1", "", ""},
			{"(unsigned-bit-shift-right -1 60)", "15", "", ""},
			{"(long 2.7)", "2", "", ""},
			{"(double 2)", "2.0", "", ""},
			{`(+ 1 "a")`, "", "", "cannot be cast"},
		}},
		{"collections", ecljtest.TestSequence{
			{"(list 1 2)", "(1 2)", "", ""},
			{"(list* 1 2 [3 4])", "(1 2 3 4)", "", ""},
			{"(vector 1 2)", "[1 2]", "", ""},
			{"(hash-map :a 1)", "{:a 1}", "", ""},
			{"(first [1 2])", "1", "", ""},
			{"(second [1 2])", "2", "", ""},
			{"(next [1])", "nil", "", ""},
			{"(rest [1 2 3])", "(2 3)", "", ""},
			{"(cons 0 [1])", "(0 1)", "", ""},
			{"(conj [1] 2 3)", "[1 2 3]", "", ""},
			{"(count {:a 1 :b 2})", "2", "", ""},
			{"(nth [1 2 3] 1)", "2", "", ""},
			{"(nth [1 2 3] 5 :none)", ":none", "", ""},
			{"(seq [])", "nil", "", ""},
			{"(get {:a 1} :b 7)", "7", "", ""},
			{"(assoc {:a 1} :b 2)", "{:a 1, :b 2}", "", ""},
			{"(dissoc {:a 1 :b 2} :a)", "{:b 2}", "", ""},
			{"(contains? #{1 2} 2)", "true", "", ""},
			{"(keys {:a 1 :b 2})", "(:a :b)", "", ""},
			{"(vals {:a 1 :b 2})", "(1 2)", "", ""},
			{"(concat [1] '(2) nil [3])", "(1 2 3)", "", ""},
			{"(range 3)", "(0 1 2)", "", ""},
			{"(range 1 10 4)", "(1 5 9)", "", ""},
			{"(reduce + [1 2 3])", "6", "", ""},
			{"(reduce + 10 [1 2 3])", "16", "", ""},
			{"(map inc [1 2 3])", "(2 3 4)", "", ""},
			{"(map + [1 2] [10 20 30])", "(11 22)", "", ""},
			{"(filter pos? [-1 2 -3 4])", "(2 4)", "", ""},
			{"(into [] '(1 2))", "[1 2]", "", ""},
			{"(vec '(1 2))", "[1 2]", "", ""},
			{"(apply + 1 2 [3 4])", "10", "", ""},
			{"(:a {:a 5})", "5", "", ""},
			{"({:a 5} :a)", "5", "", ""},
		}},
		{"predicates", ecljtest.TestSequence{
			{"(= 1 1 1)", "true", "", ""},
			{"(= [1 2] '(1 2))", "true", "", ""},
			{"(not= 1 2)", "true", "", ""},
			{"(not nil)", "true", "", ""},
			{"(nil? nil)", "true", "", ""},
			{"(some? false)", "true", "", ""},
			{"(number? 1.5)", "true", "", ""},
			{`(string? "s")`, "true", "", ""},
			{"(keyword? :k)", "true", "", ""},
			{"(symbol? 'k)", "true", "", ""},
			{"(fn? inc)", "true", "", ""},
			{"(fn? :k)", "false", "", ""},
			{"(vector? [])", "true", "", ""},
			{"(map? {})", "true", "", ""},
			{"(seq? '(1))", "true", "", ""},
			{"(identical? :a :a)", "true", "", ""},
			{"(instance? String \"s\")", "true", "", ""},
			{"(instance? Long \"s\")", "false", "", ""},
		}},
		{"strings and names", ecljtest.TestSequence{
			{`(str 1 "a" :k nil)`, `"1a:k"`, "", ""},
			{`(pr-str "a" 1)`, `"\"a\" 1"`, "", ""},
			{`(println "hello" 1)`, "nil", "hello 1\n", ""},
			{`(prn "hello" 1)`, "nil", "\"hello\" 1\n", ""},
			{`(print "a" "b")`, "nil", "a b", ""},
			{`(keyword "ns" "k")`, ":ns/k", "", ""},
			{`(symbol "s")`, "s", "", ""},
			{"(name :ns/k)", `"k"`, "", ""},
			{"(namespace :ns/k)", `"ns"`, "", ""},
			{"(namespace :k)", "nil", "", ""},
			{`(.toUpperCase "abc")`, `"ABC"`, "", ""},
			{"(Math/abs -3)", "3", "", ""},
		}},
	}
	ecljtest.RunTestSuite(t, tests)
}

func TestSpecialForms(t *testing.T) {
	tests := ecljtest.TestSuite{
		{"def", ecljtest.TestSequence{
			{"(def x 1)", "#'user/x", "", ""},
			{"x", "1", "", ""},
			{"(def x (+ x 1))", "#'user/x", "", ""},
			{"x", "2", "", ""},
			{"(def y)", "#'user/y", "", ""},
			{"y", "", "", "Attempting to use unbound var"},
			{`(def x "the answer" 5)`, "#'user/x", "", ""},
			{"x", "5", "", ""},
			{"(:doc (meta #'x))", `"the answer"`, "", ""},
			{`(def s "s")`, "#'user/s", "", ""},
			{"s", `"s"`, "", ""},
			{"(:doc (meta #'s))", "nil", "", ""},
			{"(def x 2)", "#'user/x", "", ""},
			{"(var x)", "#'user/x", "", ""},
			{"(deref #'x)", "2", "", ""},
		}},
		{"do and if", ecljtest.TestSequence{
			{"(do 1 2)", "2", "", ""},
			{"(do)", "nil", "", ""},
			{"(if nil 1 2)", "2", "", ""},
			{"(if false 1)", "nil", "", ""},
			{"(if 0 :zero :other)", ":zero", "", ""},
		}},
		{"loop", ecljtest.TestSequence{
			{"(loop [i 0 acc []] (if (< i 3) (recur (inc i) (conj acc i)) acc))", "[0 1 2]", "", ""},
			{"(loop [x 1.0 n 0] (if (< n 3) (recur (* x 2) (inc n)) x))", "8.0", "", ""},
			{"(def fact (fn [n] (loop [i n acc 1] (if (zero? i) acc (recur (dec i) (* acc i))))))", "#'user/fact", "", ""},
			{"(fact 20)", "2432902008176640000", "", ""},
			{"(fact 21)", "", "", "integer overflow"},
			{"(def countdown (fn [n] (if (pos? n) (recur (dec n)) :done)))", "#'user/countdown", "", ""},
			{"(countdown 100000)", ":done", "", ""},
			{"[(loop [i 0] (if (< i 2) (recur (inc i)) i))]", "[2]", "", ""},
			{"(loop [i 0] (try (recur (inc i))))", "", "", "Cannot recur across try"},
			{"(loop [i 0] (try (/ 1 i) (catch ArithmeticException e (recur (inc i)))))", "", "", "Cannot recur across try"},
			{"(fn [n] (try n (finally (recur n))))", "", "", "Can only recur from tail position"},
			{"(loop [x 1.0] (if (> x 0.5) (recur nil) x))", "", "", "nil cannot be cast to Number"},
			{"(defn dd [^double x] (if (> x 0.5) (recur nil) x))", "#'user/dd", "", ""},
			{"(dd 1.0)", "", "", "nil cannot be cast to Number"},
		}},
		{"letfn", ecljtest.TestSequence{
			{`(letfn [(ev? [n] (if (zero? n) true (od? (dec n))))
			          (od? [n] (if (zero? n) false (ev? (dec n))))]
			    [(ev? 10) (od? 7)])`, "[true true]", "", ""},
		}},
		{"case", ecljtest.TestSequence{
			{"(case 2 1 :one 2 :two :other)", ":two", "", ""},
			{"(case 5 1 :one :other)", ":other", "", ""},
			{`(case "b" ("a" "b") :ab :other)`, ":ab", "", ""},
			{"(case 9 1 :one)", "", "", "No matching clause: 9"},
			{"(case 1 1 :a 1 :b)", "", "", "Duplicate case test constant: 1"},
		}},
		{"try", ecljtest.TestSequence{
			{`(try (throw (ex-info "boom" {:a 1})) (catch ExceptionInfo e (ex-data e)))`, "{:a 1}", "", ""},
			{`(try (/ 1 0) (catch ArithmeticException e :div))`, ":div", "", ""},
			{`(try 1 (finally (println "done")))`, "1", "done\n", ""},
			{`(try (throw (ex-info "x" {})) (catch ArithmeticException e 1) (catch Exception e (ex-message e)))`, `"x"`, "", ""},
			{`(try (throw (ex-info "escape" {})) (catch ArithmeticException e 1))`, "", "", "escape"},
			{`[(try (throw (IllegalStateException. "bad")) (catch IllegalStateException e (.getMessage e)))]`, `["bad"]`, "", ""},
			{"(throw 1)", "", "", "cannot be cast"},
		}},
		{"binding", ecljtest.TestSequence{
			{"(def ^:dynamic *x* 1)", "#'user/*x*", "", ""},
			{"(defn get-x [] *x*)", "#'user/get-x", "", ""},
			{"(binding [*x* 2] (get-x))", "2", "", ""},
			{"(get-x)", "1", "", ""},
			{"(binding [*x* 3] (set! *x* 4) (get-x))", "4", "", ""},
			{"(set! *x* 5)", "", "", "Can't change/establish root binding"},
			{"(def z 1)", "#'user/z", "", ""},
			{"(binding [z 2] z)", "", "", "Can't dynamically bind non-dynamic var"},
		}},
		{"fn", ecljtest.TestSequence{
			{"((fn [a b] (+ a b)) 1 2)", "3", "", ""},
			{"((fn self [n] (if (zero? n) :end (self (dec n)))) 5)", ":end", "", ""},
			{"((fn [& xs] xs))", "nil", "", ""},
			{"((fn [& xs] xs) 1 2)", "(1 2)", "", ""},
			{"(defn add ([] 0) ([a] a) ([a b] (+ a b)))", "#'user/add", "", ""},
			{"[(add) (add 1) (add 1 2)]", "[0 1 3]", "", ""},
			{"(add 1 2 3)", "", "", "Wrong number of args (3)"},
			{"(defn ^long sq [^long x] (* x x))", "#'user/sq", "", ""},
			{"(sq 12)", "144", "", ""},
			{"(map sq [1 2])", "(1 4)", "", ""},
			{"(defn ^double half [^double x] (/ x 2))", "#'user/half", "", ""},
			{"(half 3)", "1.5", "", ""},
		}},
		{"host interop", ecljtest.TestSequence{
			{"(. Math abs -2)", "2", "", ""},
			{"Math/PI", "3.141592653589793", "", ""},
			{"(let [sb (new StringBuilder)] (.append sb \"ab\") (.toString sb))", `"ab"`, "", ""},
			{"(alength (long-array 3))", "3", "", ""},
			{"(let [a (long-array [1 2 3])] (aset a 0 9) (aget a 0))", "9", "", ""},
			{"(aget (double-array 2) 1)", "0.0", "", ""},
			{"(Math/nope 1)", "", "", "nope"},
		}},
		{"namespaces", ecljtest.TestSequence{
			{"(in-ns 'other)", "other", "", ""},
			{"(def v 10)", "#'other/v", "", ""},
			{"(in-ns 'user)", "user", "", ""},
			{"other/v", "10", "", ""},
			{"v", "", "", "Unable to resolve symbol: v"},
			{"(ns third (:import Math))", "nil", "", ""},
			{"*ns*", "third", "", ""},
		}},
	}
	ecljtest.RunTestSuite(t, tests)
}

func TestMacros(t *testing.T) {
	tests := ecljtest.TestSuite{
		{"core macros", ecljtest.TestSequence{
			{"(when true 1 2)", "2", "", ""},
			{"(when false 1)", "nil", "", ""},
			{"(when-not false :x)", ":x", "", ""},
			{"(if-not true 1 2)", "2", "", ""},
			{"(cond false 1 nil 2 :else 3)", "3", "", ""},
			{"(cond false 1)", "nil", "", ""},
			{"(and 1 2 3)", "3", "", ""},
			{"(and 1 nil 3)", "nil", "", ""},
			{"(and)", "true", "", ""},
			{"(or nil false 4)", "4", "", ""},
			{"(or)", "nil", "", ""},
			{"(-> 1 inc (- 10))", "-8", "", ""},
			{"(->> 1 inc (- 10))", "8", "", ""},
			{"(if-let [x (get {:a 1} :a)] (inc x) :none)", "2", "", ""},
			{"(if-let [x nil] 1 :none)", ":none", "", ""},
			{"(when-let [x 5] (+ x 1))", "6", "", ""},
			{"(comment anything (at all))", "nil", "", ""},
			{"(dotimes [i 3] (print i))", "nil", "012", ""},
			{"(declare later)", "#'user/later", "", ""},
		}},
		{"defmacro", ecljtest.TestSequence{
			{"(defmacro unless [c & body] `(if ~c nil (do ~@body)))", "#'user/unless", "", ""},
			{"(unless false 1 2)", "2", "", ""},
			{"(unless true 1)", "nil", "", ""},
			{"(macroexpand-1 '(unless c x))", "(if c nil (do x))", "", ""},
			{"(macroexpand '(when-not a b))", "(if a nil (do b))", "", ""},
			{"(defmacro twice [x] (list 'do x x))", "#'user/twice", "", ""},
			{"(twice (print 1))", "nil", "11", ""},
			{"(defmacro bad [] (throw (ex-info \"no\" {})))", "#'user/bad", "", ""},
			{"(bad)", "", "", "Error macroexpanding bad"},
			{"(when)", "", "", "Wrong number of args (0)"},
		}},
		{"eval", ecljtest.TestSequence{
			{"(eval '(+ 1 2))", "3", "", ""},
			{"(eval (list 'def 'q 4))", "#'user/q", "", ""},
			{"q", "4", "", ""},
		}},
	}
	ecljtest.RunTestSuite(t, tests)
}

func TestTypes(t *testing.T) {
	tests := ecljtest.TestSuite{
		{"protocols and records", ecljtest.TestSequence{
			{"(defprotocol Shape (area [s]) (describe [s] [s prefix]))", "Shape", "", ""},
			{`(defrecord Rect [w h]
			    Shape
			    (area [_] (* w h))
			    (describe [s] (describe s "rect"))
			    (describe [_ prefix] (str prefix " " w "x" h)))`, "user/Rect", "", ""},
			{"(def r (->Rect 2 3))", "#'user/r", "", ""},
			{"(area r)", "6", "", ""},
			{"(describe r)", `"rect 2x3"`, "", ""},
			{"r", "#user/Rect{:w 2, :h 3}", "", ""},
			{"(:h r)", "3", "", ""},
			{"(.-w r)", "2", "", ""},
			{"(map->Rect {:w 4 :h 5})", "#user/Rect{:w 4, :h 5}", "", ""},
			{"(= r (->Rect 2 3))", "true", "", ""},
			{"(satisfies? Shape r)", "true", "", ""},
			{"(area 1)", "", "", "No implementation of method: area"},
			{"(extend-type String Shape (area [s] (count s)))", "nil", "", ""},
			{`(area "abcd")`, "4", "", ""},
			{"(extend-protocol Shape nil (area [_] 0) Long (area [n] n))", "nil", "", ""},
			{"[(area nil) (area 7)]", "[0 7]", "", ""},
			{"(extends? Shape Rect)", "true", "", ""},
			{"(instance? Rect r)", "true", "", ""},
		}},
		{"deftype", ecljtest.TestSequence{
			{"(defprotocol Counter (bump [c]) (current [c]))", "Counter", "", ""},
			{"(deftype Cell [^:unsynchronized-mutable n] Counter (bump [_] (set! n (inc n)) n) (current [_] n))", "user/Cell", "", ""},
			{"(def c (->Cell 0))", "#'user/c", "", ""},
			{"(bump c)", "1", "", ""},
			{"(bump c)", "2", "", ""},
			{"(current c)", "2", "", ""},
			{"(deftype Flag [^:volatile-mutable on] Counter (bump [_] (set! on (not on)) on) (current [_] on))", "user/Flag", "", ""},
			{"(def f (->Flag false))", "#'user/f", "", ""},
			{"[(bump f) (bump f) (current f)]", "[true false false]", "", ""},
			{"(deftype Plain [^:mutable n] Counter (bump [_] (set! n 1)))", "", "", "Cannot assign to non-mutable: n"},
			{"(deftype Fixed [n] Counter (bump [_] (set! n 1)))", "", "", "Cannot assign to non-mutable: n"},
			{"Fixed", "", "", "Unable to resolve symbol: Fixed in this context"},
			{"(->Fixed 1)", "", "", "Unable to resolve symbol: ->Fixed in this context"},
			{"(deftype Cell [n] Counter (bump [_] (set! n 1)))", "", "", "Cannot assign to non-mutable: n"},
			{"(current (->Cell 5))", "5", "", ""},
			{"(instance? Cell c)", "true", "", ""},
			{"(deftype Bad [n] Counter (nope [_] 1))", "", "", "Can't define method not in interfaces: nope"},
			{"(deftype Dup [a a])", "", "", "Duplicate field name: a"},
		}},
		{"reify", ecljtest.TestSequence{
			{"(defprotocol Greeter (greet [g name]))", "Greeter", "", ""},
			{`(defn greeter [greeting] (reify Greeter (greet [_ name] (str greeting ", " name))))`, "#'user/greeter", "", ""},
			{`(greet (greeter "Hello") "Ann")`, `"Hello, Ann"`, "", ""},
			{`(let [g (greeter "Hi")] [(greet g "a") (greet g "b")])`, `["Hi, a" "Hi, b"]`, "", ""},
			{`(satisfies? Greeter (greeter "x"))`, "true", "", ""},
		}},
	}
	ecljtest.RunTestSuite(t, tests)
}
